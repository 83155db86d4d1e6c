// Command predict sends leaf images to a running server, or follows its live feed.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/model"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Server base URL")
	asJSON := flag.Bool("json", false, "Send the image as base64 JSON instead of multipart")
	watch := flag.Bool("watch", false, "Print live predictions instead of sending images")
	flag.Parse()

	if *watch {
		if err := follow(*server); err != nil {
			log.Fatalf("Live feed: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: predict [-server URL] [-json] image...")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	failed := false
	for _, path := range flag.Args() {
		result, err := send(client, *server, path, *asJSON)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %s (%s) [id %d]\n  %s\n", path, result.DiseaseName, result.Confidence, result.DiseaseID, result.Treatment)
	}

	if failed {
		os.Exit(1)
	}
}

func send(client *http.Client, server, path string, asJSON bool) (*model.PredictionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	var contentType string
	if asJSON {
		contentType = "application/json"
		err = json.NewEncoder(&body).Encode(map[string]string{"image": base64.StdEncoding.EncodeToString(data)})
	} else {
		writer := multipart.NewWriter(&body)
		contentType = writer.FormDataContentType()
		err = writeFilePart(writer, filepath.Base(path), data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Post(strings.TrimRight(server, "/")+"/predict", contentType, &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp dto.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, errResp.Error)
		}
		return nil, fmt.Errorf("%s", resp.Status)
	}

	var result model.PredictionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func writeFilePart(writer *multipart.Writer, filename string, data []byte) error {
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	return writer.Close()
}

// follow prints every event of /api/live until the connection drops.
func follow(server string) error {
	u, err := url.Parse(strings.TrimRight(server, "/") + "/api/live")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", u)
	for {
		var event dto.PredictionEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Printf("%s [%s] %s %s\n", event.CreatedAt.Local().Format("15:04:05"), event.Source,
			event.Prediction.DiseaseName, event.Prediction.Confidence)
	}
}
