package termkeys_test

import (
	"context"
	"reflect"
	"testing"

	"fontana/internal/store"
	"fontana/internal/termkeys"
	"fontana/internal/testsupport"
)

func TestBuildSplitsCompoundGenres(t *testing.T) {
	set := termkeys.Build([]store.Term{
		{ID: 1, Name: "Fiction"},
		{ID: 2, Name: "Fantasy"},
		{ID: 3, Name: "Science Fiction &amp; Fantasy", ParentID: 1},
		{ID: 4, Name: "Mystery & Suspense", ParentID: 1},
	}, []store.Term{{ID: 9, Name: " Adult "}}, []store.Term{
		{ID: 20, Name: "Dewey Key"},
		{ID: 21, Name: "nested", ParentID: 20},
	})

	cases := map[string]int64{
		"fiction":         1,
		"fantasy":         2,
		"science fiction": 3,
		"mystery":         4,
		"suspense":        4,
	}
	for name, want := range cases {
		if got, ok := set.GenreID(name); !ok || got != want {
			t.Errorf("GenreID(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}
	if id, ok := set.AudienceID("ADULT"); !ok || id != 9 {
		t.Fatalf("AudienceID = %d, %v", id, ok)
	}
	if _, ok := set.ParentKeyword("nested"); ok {
		t.Fatal("only root keywords are parents")
	}
	if id, _ := set.ParentKeyword("Dewey Key"); id != 20 {
		t.Fatalf("ParentKeyword = %d", id)
	}
	if !set.IsTermName("Suspense") || set.IsTermName("horror") {
		t.Fatal("IsTermName mismatch")
	}
}

func TestChildrenIncludeParent(t *testing.T) {
	set := termkeys.Build([]store.Term{
		{ID: 1, Name: "fiction"},
		{ID: 5, Name: "romance", ParentID: 1},
		{ID: 6, Name: "westerns", ParentID: 1},
	}, nil, nil)

	if got, want := set.ChildrenOf("fiction"), []int64{5, 1, 6}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ChildrenOf = %v, want %v", got, want)
	}
	if set.ChildrenOf("romance") != nil {
		t.Fatal("a genre without children has none")
	}
	if set.ChildrenOf("unknown") != nil {
		t.Fatal("unknown genre should yield nil")
	}
	if got := set.Missing("video", "fiction", "music"); !reflect.DeepEqual(got, []string{"music", "video"}) {
		t.Fatalf("Missing = %v", got)
	}
}

func TestCacheBuildsStoresAndReloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fiction := testsupport.MustTerm(t, st, store.Term{Taxonomy: store.TaxGenres, Name: "fiction"})
	testsupport.MustTerm(t, st, store.Term{Taxonomy: store.TaxAudience, Name: "adult"})

	set, err := termkeys.NewCache(st).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if id, ok := set.GenreID("fiction"); !ok || id != fiction.ID {
		t.Fatalf("GenreID = %d, %v", id, ok)
	}
	if _, ok, _ := st.GetOption(ctx, termkeys.OptionKey); !ok {
		t.Fatal("expected first Get to persist the set")
	}

	mystery := testsupport.MustTerm(t, st, store.Term{Taxonomy: store.TaxGenres, Name: "mystery", ParentID: fiction.ID})

	reloaded := termkeys.NewCache(st)
	stale, err := reloaded.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := stale.GenreID("mystery"); ok {
		t.Fatal("a stored set is served until refreshed")
	}

	fresh, err := reloaded.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if id, ok := fresh.GenreID("mystery"); !ok || id != mystery.ID {
		t.Fatalf("GenreID after refresh = %d, %v", id, ok)
	}
	if got := fresh.ChildrenOf("fiction"); !reflect.DeepEqual(got, []int64{mystery.ID, fiction.ID}) {
		t.Fatalf("ChildrenOf = %v", got)
	}
	again, _ := reloaded.Get(ctx)
	if again != fresh {
		t.Fatal("Get should return the refreshed set from memory")
	}

	decoded, err := termkeys.NewCache(st).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(decoded.Children, fresh.Children) {
		t.Fatalf("decoded children = %v, want %v", decoded.Children, fresh.Children)
	}
}
