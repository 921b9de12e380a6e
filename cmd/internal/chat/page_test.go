package chat

import "testing"

func TestParseSortDirection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    SortDirection
		wantErr bool
	}{
		{"", SortLatest, false},
		{"LATEST", SortLatest, false},
		{"latest", SortLatest, false},
		{" oldest ", SortOldest, false},
		{"OLDEST", SortOldest, false},
		{"sideways", "", true},
	}

	for _, tc := range cases {
		got, err := ParseSortDirection(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseSortDirection(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSortDirection(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSortDirection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	t.Parallel()

	r := PageRequest{}.Normalize(20, 100)
	if r.Size != 20 || r.Direction != SortLatest {
		t.Fatalf("defaults: got size=%d dir=%q", r.Size, r.Direction)
	}

	r = PageRequest{Size: 500, Direction: SortOldest}.Normalize(20, 100)
	if r.Size != 100 {
		t.Fatalf("clamp: got size=%d", r.Size)
	}
	if r.Direction != SortOldest {
		t.Fatalf("clamp: direction changed to %q", r.Direction)
	}

	if got := r.FetchLimit(); got != 101 {
		t.Fatalf("FetchLimit = %d, want 101", got)
	}
}

func TestBuildPage(t *testing.T) {
	t.Parallel()

	id := func(v int64) int64 { return v }

	// Fewer rows than page size: no next page.
	p := BuildPage([]int64{9, 8, 7}, 5, id)
	if p.HasNext || p.NextCursor != nil {
		t.Fatalf("short page: HasNext=%v NextCursor=%v", p.HasNext, p.NextCursor)
	}
	if len(p.Items) != 3 {
		t.Fatalf("short page: len=%d", len(p.Items))
	}

	// size+1 rows: the extra row is trimmed and signals the next page.
	p = BuildPage([]int64{9, 8, 7}, 2, id)
	if !p.HasNext {
		t.Fatalf("full page: expected HasNext")
	}
	if len(p.Items) != 2 || p.Items[1] != 8 {
		t.Fatalf("full page: items=%v", p.Items)
	}
	if p.NextCursor == nil || *p.NextCursor != 8 {
		t.Fatalf("full page: NextCursor=%v", p.NextCursor)
	}

	// Empty input stays non-nil.
	p = BuildPage(nil, 2, id)
	if p.Items == nil || len(p.Items) != 0 || p.HasNext {
		t.Fatalf("empty page: items=%v hasNext=%v", p.Items, p.HasNext)
	}
}

func TestBuildPage_WalkTerminates(t *testing.T) {
	t.Parallel()

	// Walking pages with the returned cursor must visit every row exactly
	// once and terminate.
	store := NewInMemoryStore()
	ctx := t.Context()

	th, _, err := store.Resolve(ctx, 1, 10, 20, testTime())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	const total = 7
	for i := 0; i < total; i++ {
		if _, err := store.Append(ctx, AppendInput{
			ThreadID: th.ID, SenderID: 10, Kind: KindText, Content: "m", Now: testTime(),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	seen := map[int64]bool{}
	req := PageRequest{Size: 3, Direction: SortLatest}
	for steps := 0; ; steps++ {
		if steps > total {
			t.Fatalf("pagination did not terminate")
		}
		rows, err := store.ListMessages(ctx, th.ID, req)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		page := BuildPage(rows, req.Size, func(m Message) int64 { return m.ID })
		for _, m := range page.Items {
			if seen[m.ID] {
				t.Fatalf("message %d returned twice", m.ID)
			}
			seen[m.ID] = true
		}
		if !page.HasNext {
			break
		}
		req.Cursor = page.NextCursor
	}

	if len(seen) != total {
		t.Fatalf("walk visited %d of %d messages", len(seen), total)
	}
}
