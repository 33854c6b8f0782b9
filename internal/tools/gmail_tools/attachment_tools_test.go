package gmail_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail_v1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxcontent/internal/attachment"
	"github.com/teemow/inboxcontent/internal/gmail"
	"github.com/teemow/inboxcontent/internal/server"
	"github.com/teemow/inboxcontent/internal/tools/batch"
)

var bigText = strings.Repeat("quarterly figures, line after line\n", 8000)

// gridCSV has many short cells, so its JSON grows several times over when
// re-indented.
var gridCSV = strings.Repeat(strings.TrimSuffix(strings.Repeat("1,", 30), ",")+"\n", 40)

var fixtures = map[string]struct {
	part *gmail_v1.MessagePart
	data []byte
}{
	"att-txt": {
		part: &gmail_v1.MessagePart{PartId: "1", Filename: "notes.txt", MimeType: "text/plain"},
		data: []byte("agenda:\n- budget\n"),
	},
	"att-csv": {
		part: &gmail_v1.MessagePart{PartId: "2", Filename: "table.csv", MimeType: "text/csv"},
		data: []byte("name,qty\nbolts,12\nnuts,40\n"),
	},
	"att-big": {
		part: &gmail_v1.MessagePart{PartId: "3", Filename: "minutes.txt", MimeType: "text/plain"},
		data: []byte(bigText),
	},
	"att-grid": {
		part: &gmail_v1.MessagePart{PartId: "4", Filename: "grid.csv", MimeType: "text/csv"},
		data: []byte(gridCSV),
	},
}

func gmailHandler(t *testing.T) http.Handler {
	t.Helper()

	payload := &gmail_v1.MessagePart{MimeType: "multipart/mixed"}
	for _, id := range []string{"att-txt", "att-csv", "att-big", "att-grid"} {
		f := fixtures[id]
		part := *f.part
		part.Body = &gmail_v1.MessagePartBody{AttachmentId: id, Size: int64(len(f.data))}
		payload.Parts = append(payload.Parts, &part)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "msg-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&gmail_v1.Message{Id: "msg-1", Payload: payload})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}/attachments/{aid}", func(w http.ResponseWriter, r *http.Request) {
		f, ok := fixtures[r.PathValue("aid")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Invalid attachment token"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&gmail_v1.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString(f.data),
			Size: int64(len(f.data)),
		})
	})
	return mux
}

func newTestServerContext(t *testing.T, maxSize int) *server.ServerContext {
	t.Helper()
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv("HOME", cache)

	cfg := attachment.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	cfg.MaxSize = maxSize
	sc, err := server.NewServerContext(context.Background(), attachment.NewResolver(cfg, nil, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	srv := httptest.NewServer(gmailHandler(t))
	t.Cleanup(srv.Close)

	client, err := gmail.NewService(context.Background(), "default",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	sc.SetGmailClientForAccount("default", client)
	return sc
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleListAttachments(t *testing.T) {
	sc := newTestServerContext(t, 1<<20)

	res, err := handleListAttachments(context.Background(), callTool(map[string]interface{}{"messageId": "msg-1"}), sc)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Found 4 attachment(s)")
	assert.Contains(t, text, `"filename": "table.csv"`)
	assert.Contains(t, text, `"sizeHuman": "26 B"`)
}

func TestHandleListAttachments_Errors(t *testing.T) {
	sc := newTestServerContext(t, 1<<20)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{"missing messageId", map[string]interface{}{}, "messageId is required"},
		{"wrong type messageId", map[string]interface{}{"messageId": 123}, "messageId is required"},
		{"unknown message", map[string]interface{}{"messageId": "nope"}, "Message nope not found"},
		{"account without token", map[string]interface{}{"messageId": "msg-1", "account": "work"}, "google_get_auth_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handleListAttachments(context.Background(), callTool(tt.args), sc)
			require.NoError(t, err, "handlers report failures as tool errors")
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}

func TestHandleGetAttachment(t *testing.T) {
	sc := newTestServerContext(t, 1<<20)

	t.Run("text inline", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId":    "msg-1",
			"attachmentId": "att-txt",
		}), sc)
		require.NoError(t, err)
		require.False(t, res.IsError)

		var env map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &env))
		assert.Equal(t, "text", env["category"])
		assert.Equal(t, "notes.txt", env["filename"])
		result := env["result"].(map[string]any)
		assert.Equal(t, "agenda:\n- budget\n", result["content"])
		assert.NotContains(t, env, "rawBase64")
	})

	t.Run("csv by part id", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId":    "msg-1",
			"attachmentId": "2",
		}), sc)
		require.NoError(t, err)

		var env map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &env))
		assert.Equal(t, "spreadsheet", env["category"])
	})

	t.Run("decode false", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId":    "msg-1",
			"attachmentId": "att-csv",
			"decode":       false,
		}), sc)
		require.NoError(t, err)

		var env map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &env))
		assert.Equal(t, "binary", env["category"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(fixtures["att-csv"].data), env["rawBase64"])
	})

	t.Run("include raw", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId":    "msg-1",
			"attachmentId": "att-txt",
			"includeRaw":   true,
		}), sc)
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), `"rawBase64"`)
	})

	t.Run("unknown attachment", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId":    "msg-1",
			"attachmentId": "att-gone",
		}), sc)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "Attachment att-gone not found in message msg-1")
	})

	t.Run("missing attachmentId", func(t *testing.T) {
		res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
			"messageId": "msg-1",
		}), sc)
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "attachmentId is required")
	})
}

func TestHandleGetAttachment_Spills(t *testing.T) {
	sc := newTestServerContext(t, 64*1024)

	res, err := handleGetAttachment(context.Background(), callTool(map[string]interface{}{
		"messageId":    "msg-1",
		"attachmentId": "att-big",
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.LessOrEqual(t, len(text), 64*1024)

	var spill attachment.SpillResponse
	require.NoError(t, json.Unmarshal([]byte(text), &spill))
	assert.True(t, spill.MCPLimitExceeded)
	require.NotNil(t, spill.Record)

	written, err := os.ReadFile(spill.Record.Path)
	require.NoError(t, err)
	assert.Equal(t, bigText, string(written))
}

func TestHandleGetAttachments(t *testing.T) {
	sc := newTestServerContext(t, 256*1024)

	res, err := handleGetAttachments(context.Background(), callTool(map[string]interface{}{
		"messageId":     "msg-1",
		"attachmentIds": []interface{}{"att-txt", "att-big", "att-gone"},
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.LessOrEqual(t, len(text), 256*1024)

	var br batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(text), &br))
	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Successful)
	assert.Equal(t, 1, br.Failed)

	require.Len(t, br.Results, 3)
	assert.Equal(t, "att-txt", br.Results[0].ID)

	var first map[string]any
	require.NoError(t, json.Unmarshal(br.Results[0].Result, &first))
	assert.Equal(t, "text", first["category"])

	var second attachment.SpillResponse
	require.NoError(t, json.Unmarshal(br.Results[1].Result, &second))
	assert.True(t, second.MCPLimitExceeded)

	assert.Equal(t, batch.StatusError, br.Results[2].Status)
	assert.NotEmpty(t, br.Results[2].Error)
}

func TestHandleGetAttachments_CombinedWithinLimit(t *testing.T) {
	const maxSize = 16 * 1024
	sc := newTestServerContext(t, maxSize)

	res, err := handleGetAttachments(context.Background(), callTool(map[string]interface{}{
		"messageId":     "msg-1",
		"attachmentIds": []interface{}{"att-grid", "4"},
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.LessOrEqual(t, len(text), maxSize)

	var br batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(text), &br))
	require.Equal(t, 2, br.Successful)
	for _, item := range br.Results {
		var env map[string]any
		require.NoError(t, json.Unmarshal(item.Result, &env))
		assert.Equal(t, "spreadsheet", env["category"])
		assert.Contains(t, env, "result", "grid fits its share of the limit and stays inline")
	}
}

func TestOffloadResult(t *testing.T) {
	sc := newTestServerContext(t, 1<<20)
	resolver := sc.Resolver()

	inline := resolver.Resolve(context.Background(), attachment.Request{
		Base64Data: base64.StdEncoding.EncodeToString([]byte(gridCSV)),
		MimeType:   "text/csv",
		Filename:   "grid.csv",
		Decode:     true,
	})
	require.NotNil(t, inline.Inline)
	encoded, err := inline.JSON()
	require.NoError(t, err)

	got := offloadResult(context.Background(), resolver, batch.NewSuccessResult("att-grid", encoded))
	require.Equal(t, batch.StatusSuccess, got.Status)
	assert.Less(t, len(got.Result), len(encoded))

	var ref attachment.SpillResponse
	require.NoError(t, json.Unmarshal(got.Result, &ref))
	assert.True(t, ref.MCPLimitExceeded)
	assert.True(t, ref.SecondaryTruncation)
	assert.Nil(t, ref.Summary)
	require.NotNil(t, ref.Record)

	written, err := os.ReadFile(ref.Record.Path)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(written))

	again := offloadResult(context.Background(), resolver, got)
	var same attachment.SpillResponse
	require.NoError(t, json.Unmarshal(again.Result, &same))
	assert.Equal(t, ref.Record.Path, same.Record.Path, "references are not written twice")
}

func TestHandleGetAttachments_Validation(t *testing.T) {
	sc := newTestServerContext(t, 1<<20)

	ids := make([]interface{}, maxBatchAttachments+1)
	for i := range ids {
		ids[i] = "att-txt"
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{"missing ids", map[string]interface{}{"messageId": "msg-1"}, "attachmentIds is required"},
		{"too many ids", map[string]interface{}{"messageId": "msg-1", "attachmentIds": ids}, "at most"},
		{"missing messageId", map[string]interface{}{"attachmentIds": "att-txt"}, "messageId is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handleGetAttachments(context.Background(), callTool(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}

func TestBatchItemBudget(t *testing.T) {
	tests := []struct {
		maxSize, n, want int
	}{
		{1 << 20, 1, 1 << 20},
		{1 << 20, 4, (1<<20)/4 - batchItemOverhead},
		{1000, 10, batchItemOverhead},
	}
	for _, tt := range tests {
		if got := batchItemBudget(tt.maxSize, tt.n); got != tt.want {
			t.Errorf("batchItemBudget(%d, %d) = %d, want %d", tt.maxSize, tt.n, got, tt.want)
		}
	}
}
