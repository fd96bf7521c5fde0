package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_FilteredAndUnfilteredSubscribers(t *testing.T) {
	feed := NewFeed()
	self := feed.Subscribe(Filter{ProfileID: "s1"}, 4)
	all := feed.Subscribe(Filter{}, 4)
	defer self.Unsubscribe()
	defer all.Unsubscribe()

	feed.Deliver(approvedEvent("s1"), nil)
	feed.Deliver(approvedEvent("s2"), nil)

	assert.Len(t, self.C(), 1)
	assert.Len(t, all.C(), 2)
	assert.Equal(t, "s1", (<-self.C()).SubjectID())
}

func TestFeed_UnsubscribeClosesChannel(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe(Filter{}, 1)
	assert.Equal(t, 1, feed.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, feed.Len())

	_, open := <-sub.C()
	assert.False(t, open)

	// delivery after unsubscribe must not panic
	feed.Deliver(approvedEvent("s1"), nil)
}

func TestFeed_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe(Filter{}, 1)
	defer sub.Unsubscribe()

	feed.Deliver(approvedEvent("s1"), nil)
	feed.Deliver(approvedEvent("s2"), nil)

	assert.Equal(t, "s1", (<-sub.C()).SubjectID())
	select {
	case <-sub.C():
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestFeed_CloseEndsSubscriptions(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe(Filter{}, 1)
	feed.Close()

	_, open := <-sub.C()
	assert.False(t, open)

	late := feed.Subscribe(Filter{}, 1)
	_, open = <-late.C()
	assert.False(t, open)
	late.Unsubscribe()
}

func TestFeed_WiredThroughNotifier(t *testing.T) {
	n := NewNotifier(nil)
	feed := NewFeed()
	require.NoError(t, n.StartProfileSubscriber(context.Background(), feed.Deliver))

	sub := feed.Subscribe(Filter{ProfileID: "s1"}, 1)
	defer sub.Unsubscribe()

	require.NoError(t, n.PublishProfileEvent(context.Background(), approvedEvent("s1")))
	assert.Equal(t, "s1", (<-sub.C()).SubjectID())
}
