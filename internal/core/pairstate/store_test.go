package pairstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neilberkman/threadkeep/internal/core/docstore"
	"github.com/neilberkman/threadkeep/internal/core/models"
)

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func newTestStore(docs docstore.Store) *Store {
	return New(docs, WithClock(fixedClock(time.Unix(1700000000, 0))))
}

func TestPairID_Deterministic(t *testing.T) {
	require.Equal(t, PairID("c", "u", "a"), PairID("c", "u", "a"))
	require.Equal(t, "c_u_a", PairID("c", "u", "a"))
	require.Equal(t, "c_%none_a", PairID("c", "", "a"))
}

func TestPairID_Injective(t *testing.T) {
	triples := [][3]string{
		{"c", "u", "a"},
		{"c", "u", "b"},
		{"c", "v", "a"},
		{"d", "u", "a"},
		{"c", "", "a"},
		{"c_u", "a", "x"},
		{"c", "u_a", "x"},
		{"c", "u", "a_x"},
		{"c", "%none", "a"},
		{"c", "%25none", "a"},
		{"c%5F", "u", "a"},
		{"c_", "u", "a"},
	}

	seen := map[string][3]string{}
	for _, tr := range triples {
		id := PairID(tr[0], tr[1], tr[2])
		if prev, ok := seen[id]; ok {
			t.Fatalf("PairID collision: %v and %v both map to %q", prev, tr, id)
		}
		seen[id] = tr
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "", Truncate("abc", 0))
	require.Equal(t, "ab", Truncate("abc", 2))
	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "héll", Truncate("héllo", 4))
}

func TestGetState_DefaultNew(t *testing.T) {
	s := newTestStore(docstore.NewMemory())
	require.Equal(t, models.StateNew, s.GetState("unknown"))
}

func TestUpdateState_TruncatesPreviews(t *testing.T) {
	s := newTestStore(docstore.NewMemory())
	prompt := strings.Repeat("p", 150) + strings.Repeat("q", 50)
	response := strings.Repeat("r", 99)

	require.NoError(t, s.UpdateState("id1", models.StateSaved, "c1", prompt, response))

	rec, ok := s.Get("id1")
	require.True(t, ok)
	require.Equal(t, strings.Repeat("p", 100), rec.PromptPreview)
	require.Equal(t, response, rec.ResponsePreview)
	require.Equal(t, ContentHash(prompt, response), rec.ContentHash)
	require.NotZero(t, rec.LastModified)
	require.Equal(t, models.StateSaved, s.GetState("id1"))
}

func TestUpdateState_RejectsMissingIDs(t *testing.T) {
	s := newTestStore(docstore.NewMemory())
	require.Error(t, s.UpdateState("", models.StateSaved, "c1", "", ""))
	require.Error(t, s.UpdateState("id", models.StateSaved, "", "", ""))
}

func TestRoundTrip(t *testing.T) {
	docs := docstore.NewMemory()
	s := newTestStore(docs)

	require.NoError(t, s.UpdateState("a", models.StateSaved, "c1", "q1", "r1"))
	require.NoError(t, s.UpdateState("b", models.StateIgnored, "c1", "q2", "r2"))
	require.NoError(t, s.UpdateState("a", models.StateNew, "c1", "q1", "r1"))

	reloaded := newTestStore(docs)
	require.NoError(t, reloaded.Load())

	pairs := reloaded.Pairs()
	require.Len(t, pairs, 2)
	require.Equal(t, models.StateNew, reloaded.GetState("a"))
	require.Equal(t, models.StateIgnored, reloaded.GetState("b"))
	require.False(t, reloaded.LastUpdated().IsZero())
}

func TestPersistedShape(t *testing.T) {
	docs := docstore.NewMemory()
	s := newTestStore(docs)
	require.NoError(t, s.UpdateState("a", models.StateSaved, "c1", "q", "r"))

	data, err := docs.Read(DefaultPath)
	require.NoError(t, err)

	var doc struct {
		QAPairs     map[string]map[string]any `json:"qaPairs"`
		LastUpdated int64                     `json:"lastUpdated"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "saved", doc.QAPairs["a"]["state"])
	require.Equal(t, "c1", doc.QAPairs["a"]["conversationId"])
	require.Equal(t, int64(1700000000001), doc.LastUpdated)
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(docstore.NewMemory())
	require.NoError(t, s.Load())
	require.Empty(t, s.Pairs())
}

func TestLoad_LegacyShape(t *testing.T) {
	docs := docstore.NewMemory()
	require.NoError(t, docs.Write(DefaultPath, []byte(`{"conversations": {"c1": {"status": "processed"}}}`)))

	s := newTestStore(docs)
	require.NoError(t, s.Load())
	require.Empty(t, s.Pairs())
}

func TestLoad_UnrecognizedShapes(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `"text"`, `{"other": 1}`} {
		docs := docstore.NewMemory()
		require.NoError(t, docs.Write(DefaultPath, []byte(body)))

		s := newTestStore(docs)
		require.NoError(t, s.Load(), body)
		require.Empty(t, s.Pairs(), body)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	for _, body := range []string{`{"qaPairs": {`, `not json`, ``, `{"qaPairs": {"x": {"state": "bogus"}}}`} {
		docs := docstore.NewMemory()
		require.NoError(t, docs.Write(DefaultPath, []byte(body)))

		s := newTestStore(docs)
		err := s.Load()
		require.ErrorIs(t, err, ErrCorruptStateFile, "body %q", body)
	}
}

func TestLoad_ReplacesMemory(t *testing.T) {
	docs := docstore.NewMemory()
	s := newTestStore(docs)
	require.NoError(t, s.UpdateState("a", models.StateSaved, "c1", "q", "r"))

	// External clearing of the file empties the store on next load
	require.NoError(t, docs.Write(DefaultPath, []byte(`{"qaPairs": {}, "lastUpdated": 0}`)))
	require.NoError(t, s.Load())
	require.Empty(t, s.Pairs())
}

func TestUpdateState_PersistenceFailureKeepsMemory(t *testing.T) {
	docs := docstore.NewMemory()
	boom := errors.New("disk full")
	docs.FailWith = boom

	s := newTestStore(docs)
	err := s.UpdateState("a", models.StateSaved, "c1", "q", "r")
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, boom)
	require.Equal(t, models.StateSaved, s.GetState("a"))
}

func TestUpdateState_CorruptOnDiskNotOverwritten(t *testing.T) {
	docs := docstore.NewMemory()
	require.NoError(t, docs.Write(DefaultPath, []byte(`garbage`)))

	s := newTestStore(docs)
	err := s.UpdateState("a", models.StateSaved, "c1", "q", "r")
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, ErrCorruptStateFile)

	data, err := docs.Read(DefaultPath)
	require.NoError(t, err)
	require.Equal(t, "garbage", string(data))
}

func TestUpdateState_MergesOtherWriters(t *testing.T) {
	docs := docstore.NewMemory()
	first := newTestStore(docs)
	second := New(docs, WithClock(fixedClock(time.Unix(1800000000, 0))))

	require.NoError(t, first.Load())
	require.NoError(t, second.Load())

	require.NoError(t, first.UpdateState("a", models.StateSaved, "c1", "q", "r"))
	require.NoError(t, second.UpdateState("b", models.StateIgnored, "c1", "q", "r"))
	// first never saw "b" in memory; its next write must not drop it
	require.NoError(t, first.UpdateState("c", models.StateSaved, "c2", "q", "r"))

	final := newTestStore(docs)
	require.NoError(t, final.Load())
	require.Len(t, final.Pairs(), 3)
	require.Equal(t, models.StateIgnored, final.GetState("b"))
}

func TestUpdateState_Concurrent(t *testing.T) {
	docs := docstore.NewMemory()
	s := newTestStore(docs)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("pair-%02d", i)
			if err := s.UpdateState(id, models.StateSaved, "c1", "q", "r"); err != nil {
				t.Errorf("UpdateState(%s): %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	reloaded := newTestStore(docs)
	require.NoError(t, reloaded.Load())
	require.Len(t, reloaded.Pairs(), 50)
}

func TestStatus(t *testing.T) {
	docs := docstore.NewMemory()
	s := newTestStore(docs)

	require.Equal(t, models.StatusUnprocessed, s.Status("c1"))
	require.Equal(t, models.StatusUnprocessed, s.StatusWithTotal("c1", 3))

	// one saved, two never touched
	require.NoError(t, s.UpdateState("p1", models.StateSaved, "c1", "", "r1"))
	require.Equal(t, models.StatusPartial, s.StatusWithTotal("c1", 3))
	require.Equal(t, models.StatusProcessed, s.Status("c1"))

	// all three recorded: 2 saved + 1 ignored
	require.NoError(t, s.UpdateState("p2", models.StateSaved, "c1", "", "r2"))
	require.NoError(t, s.UpdateState("p3", models.StateIgnored, "c1", "", "r3"))
	require.Equal(t, models.StatusProcessed, s.StatusWithTotal("c1", 3))

	// all three reset to new
	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.UpdateState(id, models.StateNew, "c1", "", "r"))
	}
	require.Equal(t, models.StatusUnprocessed, s.StatusWithTotal("c1", 3))
	require.Equal(t, models.StatusPartial, s.Status("c1"))

	// other conversations are not counted
	require.NoError(t, s.UpdateState("x", models.StateSaved, "c2", "", "r"))
	require.Equal(t, models.StatusUnprocessed, s.StatusWithTotal("c1", 3))
	require.Len(t, s.PairsForConversation("c1"), 3)
}

func TestStatusWithTotal_MoreRecordedThanTotal(t *testing.T) {
	s := newTestStore(docstore.NewMemory())
	require.NoError(t, s.UpdateState("p1", models.StateSaved, "c1", "", "r"))
	require.NoError(t, s.UpdateState("p2", models.StateSaved, "c1", "", "r"))
	require.Equal(t, models.StatusProcessed, s.StatusWithTotal("c1", 1))
}
