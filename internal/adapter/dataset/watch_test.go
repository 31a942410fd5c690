package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"oss-impact-radar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan []*domain.Repo, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(repos []*domain.Repo) { reloaded <- repos })
	}()

	// 等 watcher 注册完成
	time.Sleep(100 * time.Millisecond)

	// 写入一个坏文件：不应触发回调
	require.NoError(t, os.WriteFile(path, []byte("name\n"), 0o644))
	select {
	case <-reloaded:
		t.Fatal("加载失败时不应调用 onChange")
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	select {
	case repos := <-reloaded:
		assert.Len(t, repos, 3)
	case <-time.After(3 * time.Second):
		t.Fatal("没有收到重新加载的回调")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch 没有在 ctx 取消后退出")
	}
}
