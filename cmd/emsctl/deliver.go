package main

import (
	"context"
	"path/filepath"

	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/util"
)

// FileDeliverer writes artifacts into a directory under their own filename.
type FileDeliverer struct {
	Dir string
}

func NewFileDeliverer(dir string) *FileDeliverer { return &FileDeliverer{Dir: dir} }

func (d *FileDeliverer) Deliver(ctx context.Context, a *credential.Artifact) (credential.Receipt, error) {
	path := filepath.Join(d.Dir, a.Filename)
	if err := util.WriteFileAtomic(path, a.Bytes()); err != nil {
		return credential.Receipt{}, &credential.IOError{Op: "write " + path, Err: err}
	}
	return credential.Receipt{
		ID:       a.Filename,
		Filename: a.Filename,
		URL:      path,
		Pages:    a.PageCount(),
	}, nil
}
