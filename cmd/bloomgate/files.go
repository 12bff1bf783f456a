package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spf13/afero"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/codec"
)

const (
	formatJSON  = "json"
	formatSCALE = "scale"
)

const dirPerm = 0o700

// writeFile replaces path with data. The data is written to a temporary
// file in the same directory first, so readers never see a partial file.
func writeFile(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fs, dir, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create tmp file: %w", err)
	}
	defer fs.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write tmp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync tmp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp file: %w", err)
	}
	if err := fs.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename tmp file %s to %s: %w", tmp.Name(), path, err)
	}
	return nil
}

func isGSPath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

func parseGSPath(gsPath string) (bucket, object string, err error) {
	parsed, err := url.Parse(gsPath)
	if err != nil {
		return "", "", err
	}
	if parsed.Scheme != "gs" {
		return "", "", fmt.Errorf("path %s must have 'gs' scheme", gsPath)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("path %s must have bucket", gsPath)
	}
	object = strings.TrimPrefix(parsed.Path, "/")
	if object == "" {
		return "", "", fmt.Errorf("path %s must name an object", gsPath)
	}
	return parsed.Host, object, nil
}

// save writes data to a local path or to a gs:// object.
func save(ctx context.Context, fs afero.Fs, path string, data []byte) error {
	if !isGSPath(path) {
		return writeFile(fs, path, data)
	}
	bucket, object, err := parseGSPath(path)
	if err != nil {
		return err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create gs client: %w", err)
	}
	defer client.Close()
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// load reads a local path or a gs:// object.
func load(ctx context.Context, fs afero.Fs, path string) ([]byte, error) {
	if !isGSPath(path) {
		return afero.ReadFile(fs, path)
	}
	bucket, object, err := parseGSPath(path)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gs client: %w", err)
	}
	defer client.Close()
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// readIDs reads one id per line. Blank lines are skipped.
func readIDs(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func readJSON(fs afero.Fs, path string, v any) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func encodeSnapshot(s bloom.Snapshot, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		return json.Marshal(s)
	case formatSCALE:
		return codec.Encode(&s)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// readFilter loads a snapshot file in either encoding. JSON snapshots start
// with an object, anything else is decoded as SCALE.
func readFilter(ctx context.Context, fs afero.Fs, path string, opts ...bloom.Opt) (*bloom.Filter, string, error) {
	data, err := load(ctx, fs, path)
	if err != nil {
		return nil, "", fmt.Errorf("read filter: %w", err)
	}
	var (
		s      bloom.Snapshot
		format = formatSCALE
	)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		format = formatJSON
		err = json.Unmarshal(trimmed, &s)
	} else {
		err = codec.Decode(data, &s)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", bloom.ErrMalformedSnapshot, path, err)
	}
	f, err := bloom.Deserialize(s, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return f, format, nil
}
