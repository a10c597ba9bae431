package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/hyperjump/vidsense/internal/cli"
	"github.com/hyperjump/vidsense/internal/models"
)

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	VideoEvents      int64                     `json:"video_events"`
	AudioEvents      int64                     `json:"audio_events"`
	Embeddings       map[models.Modality]int64 `json:"embeddings"`
	KeywordDocuments *uint64                   `json:"keyword_documents,omitempty"`
	DiskUsageBytes   *int64                    `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{}    `json:"config,omitempty"`
}

// decodeResponse checks the status code and decodes the JSON body into v.
func decodeResponse(resp *http.Response, wantStatus int, v interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func retrieveViaHTTP(serverURL string, q *models.RetrieveQuery) (*models.RetrieveResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query":    q.Query,
		"top_k":    q.TopK,
		"modality": q.Modality,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/retrieve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var response models.RetrieveResponse
	if err := decodeResponse(resp, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func keywordSearchURL(serverURL string, q *models.KeywordQuery) string {
	params := url.Values{}
	params.Set("term", q.Term)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Fuzzy {
		params.Set("fuzzy", "true")
	}
	if q.Modality != "" {
		params.Set("modality", q.Modality)
	}
	if q.FileName != "" {
		params.Set("file", q.FileName)
	}
	return serverURL + "/api/v1/search?" + params.Encode()
}

func keywordSearchViaHTTP(serverURL string, q *models.KeywordQuery) (*models.KeywordResponse, error) {
	resp, err := http.Get(keywordSearchURL(serverURL, q))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var response models.KeywordResponse
	if err := decodeResponse(resp, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var s statusResponse
	if err := decodeResponse(resp, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func watchAddViaHTTP(serverURL, path string) error {
	body, err := json.Marshal(map[string]interface{}{"path": path, "sync": true})
	if err != nil {
		return err
	}
	resp, err := http.Post(serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, http.StatusCreated, nil)
}

func watchRemoveViaHTTP(serverURL, path string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, http.StatusOK, nil)
}

func watchListViaHTTP(serverURL string) ([]string, error) {
	resp, err := http.Get(serverURL + "/api/v1/watch/directories")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "video_events:       %d   # detections in the event log\n", status.VideoEvents)
	fmt.Fprintf(w, "audio_events:       %d   # transcript segments in the event log\n", status.AudioEvents)
	for _, m := range models.Modalities {
		fmt.Fprintf(w, "%-20s%d\n", string(m)+"_embeddings:", status.Embeddings[m])
	}
	if status.KeywordDocuments != nil {
		fmt.Fprintf(w, "keyword_documents:  %d\n", *status.KeywordDocuments)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # stores + index on disk\n", *status.DiskUsageBytes)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(status.Config))
		for k := range status.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-21s%v\n", k+":", status.Config[k])
		}
	}
	return nil
}
