package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileMode rw-r--r--
const FileMode fs.FileMode = 0644

// Journal 只允許附加的 JSON Lines 檔案，一行一筆資料
type Journal struct {
	file *os.File
	mu   sync.Mutex

	// 每次寫入後是否 fsync
	syncOnWrite bool
}

// Option 設定 Journal
type Option func(*Journal)

// WithSync 每次 Append 後都刷入硬碟
func WithSync() Option {
	return func(j *Journal) {
		j.syncOnWrite = true
	}
}

// Open 開啟或建立 journal 檔案
// O_APPEND 每次寫入自動跳到檔案結尾，O_RDWR 讓 ReadAll 可以從頭讀
func Open(path string, opts ...Option) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	j := &Journal{file: file}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Append 寫入一筆資料
func (j *Journal) Append(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewEncoder(j.file).Encode(v); err != nil {
		return err
	}
	if j.syncOnWrite {
		return j.file.Sync()
	}
	return nil
}

// Sync 強制刷入硬碟
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Sync()
}

// Close 關閉檔案
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// ReadAll 從頭依序讀出每一筆資料交給 callback
// 逐筆解碼，不會一次把整個檔案載入記憶體
func (j *Journal) ReadAll(callback func(raw json.RawMessage) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(j.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
