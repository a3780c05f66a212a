package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentia-ai/ragbot/internal/models"
)

func TestAppendAndGet(t *testing.T) {
	s := New(5)

	s.Append("a", models.Turn{Role: models.RoleUser, Content: "hello"})
	s.Append("a", models.Turn{Role: models.RoleAssistant, Content: "hi"})

	turns := s.Get("a")
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	s := New(5)

	for i := 0; i < 14; i++ {
		s.Append("a", models.Turn{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	turns := s.Get("a")
	require.Len(t, turns, 10)
	assert.Equal(t, "m4", turns[0].Content)
	assert.Equal(t, "m13", turns[9].Content)
}

func TestSessionIsolation(t *testing.T) {
	s := New(5)

	s.Append("a", models.Turn{Role: models.RoleUser, Content: "for a"})
	s.Append("b", models.Turn{Role: models.RoleUser, Content: "for b"})

	require.Len(t, s.Get("a"), 1)
	require.Len(t, s.Get("b"), 1)
	assert.Equal(t, "for a", s.Get("a")[0].Content)
	assert.Equal(t, "for b", s.Get("b")[0].Content)
}

func TestClear(t *testing.T) {
	s := New(5)

	s.Append("a", models.Turn{Role: models.RoleUser, Content: "x"})
	s.Append("b", models.Turn{Role: models.RoleUser, Content: "y"})
	s.Clear("a")

	assert.Empty(t, s.Get("a"))
	assert.Len(t, s.Get("b"), 1)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(5)
	s.Append("a", models.Turn{Role: models.RoleUser, Content: "original"})

	turns := s.Get("a")
	turns[0].Content = "mutated"

	assert.Equal(t, "original", s.Get("a")[0].Content)
}

func TestConcurrentAppends(t *testing.T) {
	s := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				s.Append("shared", models.Turn{Role: models.RoleUser, Content: fmt.Sprintf("%d-%d", n, j)})
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Get("shared"), 100)
}

func TestLockSerializesSession(t *testing.T) {
	s := New(5)

	unlock := s.Lock("a")
	acquired := make(chan struct{})
	go func() {
		u := s.Lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
}
