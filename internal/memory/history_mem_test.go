package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/flemzord/pplx/internal/memory"
	"github.com/flemzord/pplx/internal/provider"
)

// Compile-time interface guard.
var _ memory.HistoryStore = (*memory.InMemoryHistoryStore)(nil)

func testMsg(content string) provider.LLMMessage {
	return provider.LLMMessage{Role: provider.MessageRoleUser, Content: content}
}

func TestInMemoryHistoryStore_AppendAndGetAll(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore()

	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "hello"},
		{Role: provider.MessageRoleAssistant, Content: "hi there"},
		{Role: provider.MessageRoleUser, Content: "how are you?"},
	}

	for _, m := range msgs {
		if err := store.Append(m); err != nil {
			t.Fatalf("Append: unexpected error: %v", err)
		}
	}

	all, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll: unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll: got %d messages, want 3", len(all))
	}
	for i, m := range all {
		if m != msgs[i] {
			t.Errorf("GetAll[%d] = %+v, want %+v", i, m, msgs[i])
		}
	}
}

func TestInMemoryHistoryStore_GetAllReturnsCopy(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore()
	_ = store.Append(testMsg("original"))

	all, _ := store.GetAll()
	all[0].Content = "mutated"

	again, _ := store.GetAll()
	if again[0].Content != "original" {
		t.Errorf("store was mutated through returned slice: %q", again[0].Content)
	}
}

func TestInMemoryHistoryStore_ReplaceAndPurge(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore()
	for i := range 3 {
		_ = store.Append(testMsg(fmt.Sprintf("m%d", i)))
	}

	repl := []provider.LLMMessage{{Role: provider.MessageRoleSystem, Content: "summary"}}
	if err := store.Replace(repl); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	repl[0].Content = "changed after replace"

	all, _ := store.GetAll()
	if len(all) != 1 || all[0].Content != "summary" {
		t.Errorf("after Replace = %+v", all)
	}

	if err := store.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n, _ := store.Len(); n != 0 {
		t.Errorf("Len after Purge = %d, want 0", n)
	}
}

func TestInMemoryHistoryStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(testMsg(fmt.Sprintf("m%d", i)))
		}()
	}
	wg.Wait()

	if n, _ := store.Len(); n != 50 {
		t.Errorf("Len = %d, want 50", n)
	}
}
