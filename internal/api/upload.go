package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

const uploadField = "file"

// ProgressFunc receives upload progress in percent (0-100).
type ProgressFunc func(percent int)

// UploadResume sends the file as multipart form data. Progress is reported while
// the file is streamed; the final 100 is reported by the caller on success.
func (c *Client) UploadResume(ctx context.Context, path string, progress ProgressFunc) (*Resume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if progress == nil {
		progress = func(int) {}
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		part, err := w.CreateFormFile(uploadField, filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		counter := &progressReader{reader: file, total: stat.Size(), report: progress}
		if _, err := io.Copy(part, counter); err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.CloseWithError(w.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resumeEndpoint(resumesPath+"/upload"), pr)
	if err != nil {
		pr.Close()
		wg.Wait()
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var raw map[string]any
	err = c.do(req, &raw)
	// Unblock the writer if the request failed before the body was consumed.
	pr.Close()
	wg.Wait()
	if err != nil {
		return nil, fmt.Errorf("upload resume: %w", err)
	}

	var resume Resume
	if err := decodeField(raw, "resume", true, &resume); err != nil {
		return nil, err
	}

	return &resume, nil
}

type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.read += int64(n)

	if p.total > 0 {
		// 100 is reserved for the server confirmation.
		percent := int(p.read * 99 / p.total)
		if percent > p.last {
			p.last = percent
			p.report(percent)
		}
	}

	return n, err
}
