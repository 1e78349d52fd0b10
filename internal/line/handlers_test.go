package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/benhoenig/NOVA-II/internal/assistant"
	"github.com/benhoenig/NOVA-II/internal/dialogue"
	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
	"github.com/benhoenig/NOVA-II/internal/store"
)

type stubClient struct{}

func (stubClient) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (*llm.Response, error) {
	return &llm.Response{Content: "{}"}, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, utterance string, state map[string]string) (dialogue.Proposal, error) {
	return dialogue.Proposal{}, nil
}

// lineEndpoint records every request body the SDK sends to the LINE API.
type lineEndpoint struct {
	mu     sync.Mutex
	bodies []string
}

func (e *lineEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	e.mu.Lock()
	e.bodies = append(e.bodies, string(body))
	e.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{}"))
}

func (e *lineEndpoint) sent() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Join(e.bodies, "\n")
}

const testSecret = "test-channel-secret"

func newTestBot(t *testing.T) (*Bot, *store.Store, *lineEndpoint) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	endpoint := &lineEndpoint{}
	ts := httptest.NewServer(endpoint)
	t.Cleanup(ts.Close)

	api, err := messaging_api.NewMessagingApiAPI("test-token", messaging_api.WithEndpoint(ts.URL))
	if err != nil {
		t.Fatalf("building messaging API client: %v", err)
	}

	machine := goal.NewMachine(db)
	engine := dialogue.NewEngine(stubExtractor{}, db, nil)
	a := assistant.New(stubClient{}, db, machine, engine, db, time.UTC, 60000)
	return NewBot(api, testSecret, a, db), db, endpoint
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postCallback(t *testing.T, bot *Bot, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", signature)
	rec := httptest.NewRecorder()
	bot.Callback(rec, req)
	return rec
}

// --- Callback ---

func TestCallbackRejectsBadSignature(t *testing.T) {
	bot, _, endpoint := newTestBot(t)

	body := `{"destination": "Ubot", "events": []}`
	rec := postCallback(t, bot, body, "not-a-real-signature")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if endpoint.sent() != "" {
		t.Errorf("expected nothing sent to LINE, got %q", endpoint.sent())
	}
}

func TestCallbackRepliesToTextMessage(t *testing.T) {
	bot, _, endpoint := newTestBot(t)

	body := `{
		"destination": "Ubot",
		"events": [{
			"type": "message",
			"mode": "active",
			"timestamp": 1767216000000,
			"webhookEventId": "01HTEST",
			"deliveryContext": {"isRedelivery": false},
			"source": {"type": "user", "userId": "U001"},
			"replyToken": "rtok-1",
			"message": {"type": "text", "id": "100", "quoteToken": "q", "text": "ping"}
		}]
	}`
	rec := postCallback(t, bot, body, sign(testSecret, []byte(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	sent := endpoint.sent()
	if !strings.Contains(sent, "rtok-1") {
		t.Errorf("expected a reply on the event's reply token, got %q", sent)
	}
	if !strings.Contains(sent, "pong! NOVA II is online.") {
		t.Errorf("expected the ping reply, got %q", sent)
	}
}

func TestCallbackFollowAddsSubscriber(t *testing.T) {
	bot, db, endpoint := newTestBot(t)

	body := `{
		"destination": "Ubot",
		"events": [{
			"type": "follow",
			"mode": "active",
			"timestamp": 1767216000000,
			"webhookEventId": "01HTEST",
			"deliveryContext": {"isRedelivery": false},
			"source": {"type": "user", "userId": "U002"},
			"replyToken": "rtok-2",
			"follow": {"isUnblocked": false}
		}]
	}`
	rec := postCallback(t, bot, body, sign(testSecret, []byte(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	subs, err := db.ListSubscribers(context.Background())
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(subs) != 1 || subs[0] != "U002" {
		t.Errorf("subscribers = %v, want [U002]", subs)
	}
	if !strings.Contains(endpoint.sent(), "สวัสดีค่ะ") {
		t.Errorf("expected a welcome reply, got %q", endpoint.sent())
	}
}

func TestCallbackUnfollowRemovesSubscriber(t *testing.T) {
	bot, db, _ := newTestBot(t)
	if err := db.AddSubscriber(context.Background(), "U003", "Ben"); err != nil {
		t.Fatalf("AddSubscriber: %v", err)
	}

	body := `{
		"destination": "Ubot",
		"events": [{
			"type": "unfollow",
			"mode": "active",
			"timestamp": 1767216000000,
			"webhookEventId": "01HTEST",
			"deliveryContext": {"isRedelivery": false},
			"source": {"type": "user", "userId": "U003"}
		}]
	}`
	rec := postCallback(t, bot, body, sign(testSecret, []byte(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	subs, err := db.ListSubscribers(context.Background())
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscribers = %v, want none", subs)
	}
}

// --- splitMessage ---

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello", 5000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("expected single chunk 'hello', got %v", chunks)
	}
}

func TestSplitMessageSplitsAtNewline(t *testing.T) {
	s := strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 15)
	chunks := splitMessage(s, 20)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != strings.Repeat("a", 15)+"\n" {
		t.Errorf("chunk[0] = %q", chunks[0])
	}
	if chunks[1] != strings.Repeat("b", 15) {
		t.Errorf("chunk[1] = %q", chunks[1])
	}
}

func TestSplitMessageNoNewlineFallback(t *testing.T) {
	s := strings.Repeat("x", 50)
	chunks := splitMessage(s, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 20) || chunks[2] != strings.Repeat("x", 10) {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitMessageKeepsThaiRunesWhole(t *testing.T) {
	s := strings.Repeat("สวัสดี", 20) // 3 bytes per rune, no newlines
	chunks := splitMessage(s, 20)
	var total string
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk[%d] splits mid-rune: %q", i, c)
		}
		total += c
	}
	if total != s {
		t.Errorf("chunks do not reassemble the input")
	}
}
