package dataset

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"oss-impact-radar/internal/domain"

	"github.com/fsnotify/fsnotify"
)

// debounce 编辑器保存文件时往往连续触发多次写事件，合并成一次重新加载
const debounce = 200 * time.Millisecond

// Watch 监听 path，文件被写入或替换后重新加载并调用 onChange。
// 加载失败时只记录日志，保留旧数据，不调用 onChange。阻塞直到 ctx 结束。
func Watch(ctx context.Context, path string, onChange func([]*domain.Repo)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录而不是文件：很多工具是先写临时文件再 rename 覆盖
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	log.Printf("[Dataset] 👀 正在监听数据集变化: %s", abs)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			repos, err := Load(abs)
			if err != nil {
				log.Printf("[Dataset] ⚠️ 重新加载失败，继续使用旧数据: %v", err)
				continue
			}
			log.Printf("[Dataset] 🔄 数据集已重新加载，共 %d 条记录", len(repos))
			onChange(repos)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Dataset] ⚠️ 监听出错: %v", err)
		}
	}
}
