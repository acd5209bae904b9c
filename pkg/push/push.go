// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package push uploads an update package to the server: start a package
// transaction, upload the missing objects, finish the transaction.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/datawire/dlib/dlog"
	"golang.org/x/sync/errgroup"

	"github.com/MichaelACosta/uhu/pkg/api"
	"github.com/MichaelACosta/uhu/pkg/config"
	"github.com/MichaelACosta/uhu/pkg/pack"
)

// Failure classes of a push, in transaction order.
var (
	ErrStartPush    = errors.New("could not start the package transaction")
	ErrObjectUpload = errors.New("could not upload object")
	ErrFinishPush   = errors.New("could not finish the package transaction")
)

// ObjectStatus is the server's verdict on one object of a started
// transaction.
type ObjectStatus struct {
	Sha256sum string `json:"sha256sum"`
	Exists    bool   `json:"exists"`
	URL       string `json:"url"`
}

type startResponse struct {
	UID     string         `json:"uid"`
	Objects []ObjectStatus `json:"objects"`
}

// Reporter receives progress events during a push.
type Reporter interface {
	ObjectSkipped(filename, sha256sum string)
	ObjectUploading(filename, sha256sum string, size int64)
	ObjectChunk(filename string, written int64)
	ObjectUploaded(filename, sha256sum string)
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) ObjectSkipped(string, string)          {}
func (NopReporter) ObjectUploading(string, string, int64) {}
func (NopReporter) ObjectChunk(string, int64)             {}
func (NopReporter) ObjectUploaded(string, string)         {}

// Pusher pushes packages to one server with one set of credentials.
type Pusher struct {
	Client    *http.Client
	Creds     *config.Credentials
	ChunkSize int64
	Reporter  Reporter
}

func (p *Pusher) reporter() Reporter {
	if p.Reporter == nil {
		return NopReporter{}
	}
	return p.Reporter
}

func (p *Pusher) chunkSize() int64 {
	if p.ChunkSize > 0 {
		return p.ChunkSize
	}
	return config.ChunkSize()
}

// Push runs the whole transaction and returns the package UID assigned
// by the server.
func (p *Pusher) Push(ctx context.Context, pkg *pack.Package) (string, error) {
	metadata, err := pkg.Metadata()
	if err != nil {
		return "", err
	}

	start, err := p.start(ctx, pkg.Product, metadata)
	if err != nil {
		return "", err
	}
	dlog.Infof(ctx, "package transaction %s started (%d objects)", start.UID, len(start.Objects))

	if err := p.uploadObjects(ctx, pkg, start.Objects); err != nil {
		return "", err
	}

	if err := p.finish(ctx, pkg.Product, start.UID); err != nil {
		return "", err
	}
	return start.UID, nil
}

func (p *Pusher) start(ctx context.Context, product string, metadata map[string]interface{}) (*startResponse, error) {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	req, err := api.NewRequest(
		config.ServerURL("/products/"+product+"/packages"),
		http.MethodPost, payload, api.WithJSON())
	if err != nil {
		return nil, err
	}
	resp, err := req.Send(ctx, p.Client, p.Creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartPush, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: %s", ErrStartPush, serverError(resp))
	}
	var start startResponse
	if err := json.NewDecoder(resp.Body).Decode(&start); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartPush, err)
	}
	return &start, nil
}

func (p *Pusher) uploadObjects(ctx context.Context, pkg *pack.Package, statuses []ObjectStatus) error {
	filenames, err := filenamesBySha256sum(pkg)
	if err != nil {
		return err
	}

	grp, ctx := errgroup.WithContext(ctx)
	for _, status := range statuses {
		status := status
		filename, ok := filenames[status.Sha256sum]
		if !ok {
			return fmt.Errorf("%w %s: not part of the package", ErrObjectUpload, status.Sha256sum)
		}
		if status.Exists {
			p.reporter().ObjectSkipped(filename, status.Sha256sum)
			continue
		}
		grp.Go(func() error {
			return p.uploadObject(ctx, filename, status)
		})
	}
	return grp.Wait()
}

func filenamesBySha256sum(pkg *pack.Package) (map[string]string, error) {
	filenames := make(map[string]string, len(pkg.Objects()))
	for _, obj := range pkg.Objects() {
		sha256sum, _, err := obj.Sha256sum()
		if err != nil {
			return nil, err
		}
		filenames[sha256sum] = obj.Filename()
	}
	return filenames, nil
}

func (p *Pusher) uploadObject(ctx context.Context, filename string, status ObjectStatus) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrObjectUpload, filename, err)
	}
	defer func() {
		_ = file.Close()
	}()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrObjectUpload, filename, err)
	}
	p.reporter().ObjectUploading(filename, status.Sha256sum, info.Size())

	body := &chunkedReader{
		reader:    file,
		chunkSize: p.chunkSize(),
		report: func(written int64) {
			p.reporter().ObjectChunk(filename, written)
		},
	}
	// Upload URLs point at the storage backend and are not signed with
	// the package credentials.
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, status.URL, body)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrObjectUpload, filename, err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-sha256", status.Sha256sum)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrObjectUpload, filename, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		p.reporter().ObjectUploaded(filename, status.Sha256sum)
		return nil
	default:
		return fmt.Errorf("%w %s: %s", ErrObjectUpload, filename, serverError(resp))
	}
}

func (p *Pusher) finish(ctx context.Context, product, packageUID string) error {
	req, err := api.NewRequest(
		config.ServerURL("/products/"+product+"/packages/"+packageUID+"/finish"),
		http.MethodPut, nil)
	if err != nil {
		return err
	}
	resp, err := req.Send(ctx, p.Client, p.Creds)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFinishPush, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %s", ErrFinishPush, serverError(resp))
	}
	return nil
}

// serverError digs a human-readable message out of an error response,
// falling back to the HTTP status.
func serverError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var detail struct {
			Message string `json:"error"`
		}
		if json.Unmarshal(body, &detail) == nil && detail.Message != "" {
			return fmt.Sprintf("%s (%s)", detail.Message, resp.Status)
		}
	}
	return resp.Status
}

// chunkedReader caps each Read at chunkSize bytes and reports progress,
// so that UHU_CHUNK_SIZE controls upload granularity.
type chunkedReader struct {
	reader    io.Reader
	chunkSize int64
	report    func(written int64)
}

func (r *chunkedReader) Read(buf []byte) (int, error) {
	if int64(len(buf)) > r.chunkSize {
		buf = buf[:r.chunkSize]
	}
	n, err := r.reader.Read(buf)
	if n > 0 && r.report != nil {
		r.report(int64(n))
	}
	return n, err
}
