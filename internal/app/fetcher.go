package app

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/afero"
)

// AppFs is the filesystem used for the path source and the snapshot
// cache. Tests swap in an in-memory filesystem.
var AppFs = afero.NewOsFs()

// FetchCSV retrieves the raw CSV content from the configured source.
// It returns ErrSourceUnreachable when the source cannot be read and
// ErrEmptyContent when the retrieved text has no data rows. There is no
// retry here: a failed fetch is simply retried on the next scheduled tick.
func FetchCSV() (string, error) {
	var content string
	var err error

	switch SourceType {
	case SourceTypeUpload:
		content = UploadedCSV()
		if strings.TrimSpace(content) == "" {
			return "", fmt.Errorf("%w: no uploaded CSV content configured", ErrSourceUnreachable)
		}
	case SourceTypePath:
		content, err = readCSVFile(SourceValue)
	case SourceTypeURL:
		content, err = downloadCSV(SourceValue)
	default:
		return "", fmt.Errorf("%w: unknown source type %q", ErrSourceUnreachable, SourceType)
	}
	if err != nil {
		return "", err
	}

	if !hasDataRows(content) {
		return "", ErrEmptyContent
	}
	return content, nil
}

// downloadCSV GETs the CSV export. The HTTP client timeout bounds slow or
// hanging remotes.
func downloadCSV(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d from %s", ErrSourceUnreachable, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrSourceUnreachable, err)
	}
	return string(data), nil
}

// readCSVFile reads the CSV export from a local path.
func readCSVFile(path string) (string, error) {
	data, err := afero.ReadFile(AppFs, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	return string(data), nil
}
