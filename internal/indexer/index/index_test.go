package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddIsIdempotentPerDocument(t *testing.T) {
	ix := New()
	assert.True(t, ix.Add("cat", "p1"))
	assert.False(t, ix.Add("cat", "p1"))

	assert.Equal(t, []string{"p1"}, ix.Lookup("cat"))
}

func TestLookupPreservesFirstIndexedOrder(t *testing.T) {
	ix := New()
	ix.Add("hub", "c")
	ix.Add("hub", "a")
	ix.Add("hub", "b")
	ix.Add("hub", "a")

	assert.Equal(t, []string{"c", "a", "b"}, ix.Lookup("hub"))
}

func TestLookupMissingDoesNotCreateEntry(t *testing.T) {
	ix := New()
	got := ix.Lookup("nothing")

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, ix.TermCount())
	assert.False(t, ix.Contains("nothing", "p1"))
}

func TestLookupReturnsCopy(t *testing.T) {
	ix := New()
	ix.Add("cat", "p1")
	ix.Lookup("cat")[0] = "mutated"
	assert.Equal(t, []string{"p1"}, ix.Lookup("cat"))
}

func TestSnapshotSortedByTerm(t *testing.T) {
	ix := New()
	ix.Add("dog", "p2")
	ix.Add("cat", "p1")
	ix.Add("cat", "p2")

	assert.Equal(t, []TermEntry{
		{Term: "cat", DocIDs: []string{"p1", "p2"}},
		{Term: "dog", DocIDs: []string{"p2"}},
	}, ix.Snapshot())
}

func TestConcurrentAdds(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			ix.Add("shared", fmt.Sprintf("doc-%d", i%10))
		})
	}
	wg.Wait()
	assert.Len(t, ix.Lookup("shared"), 10)
}

func BenchmarkAdd(b *testing.B) {
	ix := New()
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		ix.Add(fmt.Sprintf("term-%d", i%1000), fmt.Sprintf("doc-%d", i))
	}
}

func BenchmarkLookup(b *testing.B) {
	ix := New()
	for i := range 10000 {
		ix.Add("search", fmt.Sprintf("doc-%d", i))
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = ix.Lookup("search")
	}
}
