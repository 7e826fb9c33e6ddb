// =============================================================================
// FILE: internal/messenger/messenger_test.go
// PURPOSE: Exercises interest filtering, inbox draining, and the overflow
//          eviction behavior from spec.md §8 scenario 6.
// =============================================================================

package messenger

import "testing"

func TestPublishDeliversOnlyToInterestedSubscribers(t *testing.T) {
	m := New()
	videoSub := m.NewSubscriber()
	videoSub.AddInterest("video", map[EventType]bool{Created: true})
	downloadSub := m.NewSubscriber()
	downloadSub.AddInterest("download", nil)

	m.Publish(Created, "video", 7)

	msgs, err := m.ReceiveAll(videoSub)
	if err != nil {
		t.Fatalf("ReceiveAll(videoSub): %v", err)
	}
	if len(msgs) != 1 || msgs[0].SubjectID != 7 {
		t.Fatalf("videoSub messages = %+v, want one message for subject 7", msgs)
	}

	msgs, err = m.ReceiveAll(downloadSub)
	if err != nil {
		t.Fatalf("ReceiveAll(downloadSub): %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("downloadSub should not have received the video event, got %+v", msgs)
	}
}

func TestReceiveAllUnknownSubscriber(t *testing.T) {
	m := New()
	ghost := newSubscriber()
	if _, err := m.ReceiveAll(ghost); err != ErrSubscriberNotFound {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
}

// TestOverflowEvictsSubscriber matches spec.md §8 scenario 6: a subscriber
// that never polls and receives 1001 events for a subject it's interested
// in is evicted, and a subsequent ReceiveAll reports it as not found.
func TestOverflowEvictsSubscriber(t *testing.T) {
	m := New()
	sub := m.NewSubscriber()
	sub.AddInterest("video", nil)

	for i := 0; i < 1001; i++ {
		m.Publish(Created, "video", int64(i))
	}

	if _, err := m.ReceiveAll(sub); err != ErrSubscriberNotFound {
		t.Fatalf("expected subscriber evicted after overflow, got err = %v", err)
	}
}

func TestRemoveInterestDropsEmptyInterest(t *testing.T) {
	sub := newSubscriber()
	sub.AddInterest("video", map[EventType]bool{Created: true})
	sub.RemoveInterest("video", map[EventType]bool{Created: true})

	if len(sub.Interests()) != 0 {
		t.Fatalf("expected interest removed entirely once its event set is empty, got %+v", sub.Interests())
	}
}

func TestSetInterestsReplacesList(t *testing.T) {
	sub := newSubscriber()
	sub.AddInterest("video", nil)
	sub.SetInterests([]Interest{{SubjectType: "download", EventTypes: map[EventType]bool{Deleted: true}}})

	if sub.interested("video", Created) {
		t.Fatalf("expected prior interest cleared by SetInterests")
	}
	if !sub.interested("download", Deleted) {
		t.Fatalf("expected new interest to be active")
	}
}
