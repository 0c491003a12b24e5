package k8s

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func testPod() *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "orders-7d9f", Namespace: "shop"},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "app"}, {Name: "sidecar"}},
		},
	}
}

func event(name, pod, typ, reason, msg string, at time.Time) *corev1.Event {
	return &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name, Namespace: "shop"},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: pod, Namespace: "shop"},
		Type:           typ,
		Reason:         reason,
		Message:        msg,
		LastTimestamp:  metav1.NewTime(at),
	}
}

func TestParsePodRef(t *testing.T) {
	c := NewWithClientset(fake.NewClientset(), "")

	ns, pod, err := c.ParsePodRef("shop/orders-7d9f")
	require.NoError(t, err)
	assert.Equal(t, "shop", ns)
	assert.Equal(t, "orders-7d9f", pod)

	ns, pod, err = c.ParsePodRef("orders-7d9f")
	require.NoError(t, err)
	assert.Equal(t, "default", ns)
	assert.Equal(t, "orders-7d9f", pod)

	for _, bad := range []string{"", "/x", "x/", "a/b/c"} {
		_, _, err := c.ParsePodRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestPodLogs(t *testing.T) {
	c := NewWithClientset(fake.NewClientset(testPod()), "shop")

	logs, err := c.PodLogs(context.Background(), "shop", "orders-7d9f", LogOptions{TailLines: 100})
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	_, err = c.PodLogs(context.Background(), "shop", "missing", LogOptions{})
	assert.ErrorContains(t, err, "failed to get pod shop/missing")
}

func TestDefaultContainer(t *testing.T) {
	p := testPod()
	assert.Equal(t, "app", defaultContainer(p))

	p.Annotations = map[string]string{defaultContainerAnnotation: "sidecar"}
	assert.Equal(t, "sidecar", defaultContainer(p))

	assert.Empty(t, defaultContainer(&corev1.Pod{}))
}

func TestPodEvents(t *testing.T) {
	base := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	cs := fake.NewClientset(
		testPod(),
		event("e2", "orders-7d9f", "Warning", "BackOff", "Back-off restarting failed container", base.Add(time.Minute)),
		event("e1", "orders-7d9f", "Normal", "Pulled", "Container image pulled", base),
		event("e3", "payments-1", "Warning", "Failed", "not for us", base),
	)
	c := NewWithClientset(cs, "shop")

	lines, err := c.PodEvents(context.Background(), "shop", "orders-7d9f")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2025-04-05T10:00:00Z Normal Pulled: Container image pulled",
		"2025-04-05T10:01:00Z Warning BackOff: Back-off restarting failed container",
	}, lines)
}

func TestCollectLogs(t *testing.T) {
	base := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	cs := fake.NewClientset(
		testPod(),
		event("e1", "orders-7d9f", "Warning", "OOMKilled", "Container app exceeded its memory limit", base),
	)
	c := NewWithClientset(cs, "shop")

	out, err := c.CollectLogs(context.Background(), "shop", "orders-7d9f", LogOptions{Container: "app"})
	require.NoError(t, err)
	assert.Contains(t, out, "\n\nEvents:\n2025-04-05T10:00:00Z Warning OOMKilled: Container app exceeded its memory limit\n")
	assert.False(t, strings.HasPrefix(out, "\n"))
}
