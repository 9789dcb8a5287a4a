package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	p := New()

	id1, err := p.Publish(context.Background(), "pages", map[string]string{"url": "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	id2, err := p.Publish(context.Background(), "pages", map[string]string{"url": "https://example.com/a"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "pages", msgs[0].Topic)
}

func TestMessagesReturnsCopy(t *testing.T) {
	p := New()

	_, err := p.Publish(context.Background(), "pages", "payload")
	require.NoError(t, err)

	msgs := p.Messages()
	msgs[0].Topic = "mutated"

	require.Equal(t, "pages", p.Messages()[0].Topic)
}
