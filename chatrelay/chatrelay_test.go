package chatrelay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woutermans/searchllama/generation"
)

type fakeGen struct {
	frags []generation.Fragment
}

func (f *fakeGen) Generate(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeGen) GenerateStream(_ context.Context, _, _ string, _ []int64) (<-chan generation.Fragment, <-chan error) {
	frags := make(chan generation.Fragment, len(f.frags))
	errc := make(chan error, 1)
	for _, fr := range f.frags {
		frags <- fr
	}
	close(frags)
	close(errc)
	return frags, errc
}

func TestRelay_Chat_EchoesFragmentsAndContext(t *testing.T) {
	gen := &fakeGen{frags: []generation.Fragment{
		{Text: "hel"},
		{Text: "lo", Context: []int64{1, 2, 3}},
	}}
	r := NewRelay(gen, nil)

	out := r.Chat(context.Background(), "hi", nil)

	var got []Fragment
	deadline := time.After(2 * time.Second)
collect:
	for {
		select {
		case f, ok := <-out:
			if !ok {
				break collect
			}
			got = append(got, f)
		case <-deadline:
			t.Fatal("timed out waiting for chat stream")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, "hel", got[0].Response)
	assert.Nil(t, got[0].Context)
	assert.Equal(t, "lo", got[1].Response)
	assert.Equal(t, []int64{1, 2, 3}, got[1].Context)
}

func TestRelay_Chat_StopsOnContextCancel(t *testing.T) {
	gen := &fakeGen{frags: nil}
	r := NewRelay(gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.Chat(ctx, "hi", nil)
	_, ok := <-out
	assert.False(t, ok)
}
