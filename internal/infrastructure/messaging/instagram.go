package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
)

const defaultSendEndpoint = "https://graph.instagram.com/v22.0/me/messages"

// Sender delivers direct messages through the Instagram Graph API.
type Sender struct {
	token    string
	endpoint string
	client   *http.Client
	maxLen   int
	log      *slog.Logger
}

func NewSender(token string, maxLen int, log *slog.Logger) *Sender {
	return &Sender{
		token:    token,
		endpoint: defaultSendEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		maxLen:   maxLen,
		log:      log.With(sl.Module("messaging")),
	}
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

// Send delivers a single text message. Texts longer than the platform limit
// must go through SendLong.
func (s *Sender) Send(ctx context.Context, recipientID, text string) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   message{Text: text},
	})
	if err != nil {
		return fmt.Errorf("messaging: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messaging: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("messaging: send failed with status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// SendLong splits the text into platform-sized chunks and sends them in
// order. Delivery stops at the first failure so chunks never arrive out of
// order.
func (s *Sender) SendLong(ctx context.Context, recipientID, text string) error {
	for i, chunk := range SplitMessage(text, s.maxLen) {
		if err := s.Send(ctx, recipientID, chunk); err != nil {
			return fmt.Errorf("messaging: chunk %d: %w", i+1, err)
		}
	}
	return nil
}

// SplitMessage cuts text into pieces of at most max runes, preferring to
// break on a newline and then on a space so words stay intact.
func SplitMessage(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 {
		return []string{text}
	}

	var chunks []string
	remaining := []rune(text)
	for len(remaining) > 0 {
		if len(remaining) <= max {
			chunks = append(chunks, strings.TrimSpace(string(remaining)))
			break
		}
		window := remaining[:max]
		cut := lastIndexRune(window, '\n')
		if cut <= 0 {
			cut = lastIndexRune(window, ' ')
		}
		if cut <= 0 {
			cut = max
		}
		chunk := strings.TrimSpace(string(remaining[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = remaining[cut:]
		for len(remaining) > 0 && (remaining[0] == ' ' || remaining[0] == '\n') {
			remaining = remaining[1:]
		}
	}
	return chunks
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// DownloadImage fetches an attachment URL to a temp file and returns its
// bytes. The file is removed before returning; it exists only so partially
// read bodies never end up in memory twice.
func (s *Sender) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: build download: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messaging: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messaging: download failed with status %d", resp.StatusCode)
	}

	path := filepath.Join(os.TempDir(), "ig-image-"+uuid.NewString())
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("messaging: temp file: %w", err)
	}
	defer os.Remove(path)
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return nil, fmt.Errorf("messaging: write image: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("messaging: read image: %w", err)
	}
	s.log.Debug("image downloaded", slog.Int("bytes", len(data)))
	return data, nil
}
