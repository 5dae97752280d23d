package dataset

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadShardsKeepsShardOrder(t *testing.T) {
	dir := t.TempDir()
	var shards []string
	for i, keys := range [][]string{{"a0", "a1"}, {"b0"}, {"c0", "c1", "c2"}} {
		path := filepath.Join(dir, "shard-00000"+string(rune('0'+i))+".tar")
		mustShard(t, path, keys, 2, 2)
		shards = append(shards, path)
	}

	want := []string{"a0", "a1", "b0", "c0", "c1", "c2"}
	for _, workers := range []int{1, 2, 4} {
		ds, err := LoadShards(context.Background(), LoadOptions{Shards: shards, NumWorkers: workers})
		if err != nil {
			t.Fatalf("LoadShards workers=%d: %v", workers, err)
		}
		if got := keysOf(t, ds); !reflect.DeepEqual(got, want) {
			t.Fatalf("workers=%d keys=%v want %v", workers, got, want)
		}
	}
}

func TestLoadShardsPropagatesErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "shard-000000.tar")
	mustShard(t, good, []string{"a"}, 2, 2)
	missing := filepath.Join(dir, "shard-000001.tar")

	if _, err := LoadShards(context.Background(), LoadOptions{Shards: []string{good, missing}, NumWorkers: 2}); err == nil {
		t.Fatal("expected error for missing shard")
	}
	if _, err := LoadShards(context.Background(), LoadOptions{}); err == nil {
		t.Fatal("expected error for empty shard list")
	}
}

func TestLoadShardsCanceled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shard-000000.tar")
	mustShard(t, path, []string{"a"}, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadShards(ctx, LoadOptions{Shards: []string{path}}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func keysOf(t *testing.T, ds Dataset) []string {
	t.Helper()
	keys := make([]string, ds.Len())
	for i := range keys {
		s, err := ds.Sample(i)
		if err != nil {
			t.Fatalf("Sample(%d): %v", i, err)
		}
		keys[i] = s.Key
	}
	return keys
}
