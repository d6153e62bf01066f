package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishInvokesSubscribersInOrder(t *testing.T) {
	b := New(nil)
	var order []int
	b.Subscribe(TopicOrderAdded, func(interface{}) { order = append(order, 1) })
	b.Subscribe(TopicOrderAdded, func(interface{}) { order = append(order, 2) })

	b.Publish(TopicOrderAdded, "payload")

	assert.Equal(t, []int{1, 2}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	calls := 0
	id := b.Subscribe(TopicTradeExecuted, func(interface{}) { calls++ })
	b.Unsubscribe(TopicTradeExecuted, id)

	b.Publish(TopicTradeExecuted, nil)

	assert.Equal(t, 0, calls)
}

func TestPublishPropagatesPanicFromHandler(t *testing.T) {
	b := New(nil)
	secondCalled := false
	b.Subscribe(TopicOrderRemoved, func(interface{}) { panic("boom") })
	b.Subscribe(TopicOrderRemoved, func(interface{}) { secondCalled = true })

	assert.Panics(t, func() { b.Publish(TopicOrderRemoved, nil) })
	assert.False(t, secondCalled)
}

func TestPublishToTopicWithNoSubscribersIsNoop(t *testing.T) {
	b := New(nil)
	assert.NotPanics(t, func() { b.Publish("nobody_listens", 42) })
}
