package store

import (
	"encoding/json"

	"github.com/keshon/datastore"
	"github.com/ljankila/lingoscene/internal/errors"
)

// FileKV stores blobs in a single JSON file through keshon/datastore,
// which keeps the data in memory and autosaves in the background.
type FileKV struct {
	ds *datastore.DataStore
}

var _ KV = (*FileKV)(nil)

func NewFileKV(filePath string) (*FileKV, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open file store")
	}
	return &FileKV{ds: ds}, nil
}

// Get round-trips the stored value through JSON so that both freshly
// added values and values decoded from the file land in out with the
// same shape.
func (kv *FileKV) Get(key string, out any) (bool, error) {
	value, exists := kv.ds.Get(key)
	if !exists {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, "encode stored value")
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrap(err, "decode stored value")
	}
	return true, nil
}

func (kv *FileKV) Set(key string, value any) error {
	kv.ds.Add(key, value)
	return nil
}

func (kv *FileKV) Delete(key string) error {
	kv.ds.Delete(key)
	return nil
}

func (kv *FileKV) Flush() error {
	if err := kv.ds.SaveToFile(); err != nil {
		return errors.Wrap(err, "save file store")
	}
	return nil
}

func (kv *FileKV) Close() error {
	if err := kv.ds.Close(); err != nil {
		return errors.Wrap(err, "close file store")
	}
	return nil
}
