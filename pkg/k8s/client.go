package k8s

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// defaultContainerAnnotation is the annotation kubectl uses to pick a
// container when none is given.
const defaultContainerAnnotation = "kubectl.kubernetes.io/default-container"

// maxLogBytes caps what is read from a single log stream.
const maxLogBytes = 1 << 20

type Client struct {
	clientset kubernetes.Interface
	namespace string
}

// LogOptions select which log lines to fetch.
type LogOptions struct {
	Container string
	TailLines int64
	Previous  bool
}

// NewClient creates a new Kubernetes client. In-cluster configuration is
// tried first, then kubeconfig (the default loading rules when empty) with
// kubeContext as the current context when set.
func NewClient(kubeconfig, kubeContext string) (*Client, error) {
	namespace := metav1.NamespaceDefault

	config, err := rest.InClusterConfig()
	if err != nil || kubeconfig != "" || kubeContext != "" {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfig != "" {
			rules.ExplicitPath = kubeconfig
		}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
		clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

		config, err = clientConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create config: %w", err)
		}
		if ns, _, err := clientConfig.Namespace(); err == nil && ns != "" {
			namespace = ns
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return &Client{clientset: clientset, namespace: namespace}, nil
}

// NewWithClientset wraps an existing clientset.
func NewWithClientset(cs kubernetes.Interface, namespace string) *Client {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &Client{clientset: cs, namespace: namespace}
}

// ParsePodRef splits "namespace/pod". A bare pod name uses the client's
// namespace.
func (c *Client) ParsePodRef(ref string) (namespace, pod string, err error) {
	parts := strings.Split(ref, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return c.namespace, parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("invalid pod reference: %s (expected namespace/name or name)", ref)
	}
}

// PodLogs returns the pod's log. Without a container the annotated default
// container, or else the first one, is used.
func (c *Client) PodLogs(ctx context.Context, namespace, pod string, opts LogOptions) (string, error) {
	container := opts.Container
	if container == "" {
		p, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
		if err != nil {
			return "", fmt.Errorf("failed to get pod %s/%s: %w", namespace, pod, err)
		}
		container = defaultContainer(p)
	}

	logOpts := &corev1.PodLogOptions{
		Container: container,
		Previous:  opts.Previous,
	}
	if opts.TailLines > 0 {
		tail := opts.TailLines
		logOpts.TailLines = &tail
	}

	stream, err := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, logOpts).Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs of %s/%s: %w", namespace, pod, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, maxLogBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read logs of %s/%s: %w", namespace, pod, err)
	}
	return string(data), nil
}

func defaultContainer(p *corev1.Pod) string {
	if name := p.Annotations[defaultContainerAnnotation]; name != "" {
		return name
	}
	if len(p.Spec.Containers) > 0 {
		return p.Spec.Containers[0].Name
	}
	return ""
}

// PodEvents returns the pod's events oldest first, one formatted line each.
func (c *Client) PodEvents(ctx context.Context, namespace, pod string) ([]string, error) {
	selector := fields.OneTermEqualSelector("involvedObject.name", pod).String()
	events, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{FieldSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s/%s: %w", namespace, pod, err)
	}

	var items []corev1.Event
	for _, e := range events.Items {
		if e.InvolvedObject.Name == pod {
			items = append(items, e)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return eventTime(items[i]).Before(eventTime(items[j]))
	})

	lines := make([]string, 0, len(items))
	for _, e := range items {
		line := fmt.Sprintf("%s %s %s: %s",
			eventTime(e).UTC().Format(time.RFC3339), e.Type, e.Reason, strings.TrimSpace(e.Message))
		if e.Count > 1 {
			line += fmt.Sprintf(" (x%d)", e.Count)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func eventTime(e corev1.Event) time.Time {
	switch {
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time
	case !e.EventTime.IsZero():
		return e.EventTime.Time
	default:
		return e.FirstTimestamp.Time
	}
}

// CollectLogs returns the pod's log followed by its events, ready to be
// used as the log input of an analysis. Events are best effort.
func (c *Client) CollectLogs(ctx context.Context, namespace, pod string, opts LogOptions) (string, error) {
	logs, err := c.PodLogs(ctx, namespace, pod, opts)
	if err != nil {
		return "", err
	}

	events, err := c.PodEvents(ctx, namespace, pod)
	if err != nil || len(events) == 0 {
		return logs, nil
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(logs, "\n"))
	b.WriteString("\n\nEvents:\n")
	b.WriteString(strings.Join(events, "\n"))
	b.WriteString("\n")
	return b.String(), nil
}
