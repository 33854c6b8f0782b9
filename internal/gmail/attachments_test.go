package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func TestWalkParts(t *testing.T) {
	tests := []struct {
		name          string
		part          *gmail.MessagePart
		expectedParts int
	}{
		{
			name:          "nil part",
			part:          nil,
			expectedParts: 0,
		},
		{
			name: "single part",
			part: &gmail.MessagePart{
				PartId:   "0",
				MimeType: "text/plain",
			},
			expectedParts: 1,
		},
		{
			name: "deeply nested parts",
			part: &gmail.MessagePart{
				PartId:   "0",
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						PartId:   "0.0",
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{PartId: "0.0.0", MimeType: "text/plain"},
							{PartId: "0.0.1", MimeType: "text/html"},
						},
					},
					{PartId: "0.1", MimeType: "application/pdf"},
				},
			},
			expectedParts: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := 0
			walkParts(tt.part, func(*gmail.MessagePart) { count++ })
			if count != tt.expectedParts {
				t.Errorf("walked %d parts, want %d", count, tt.expectedParts)
			}
		})
	}
}

func multipartMessage() *gmail.MessagePart {
	return &gmail.MessagePart{
		PartId:   "",
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				PartId:   "0",
				MimeType: "text/plain",
				Body: &gmail.MessagePartBody{
					Data: base64.URLEncoding.EncodeToString([]byte("Body text")),
				},
			},
			{
				PartId:   "1",
				Filename: "report.csv",
				MimeType: "text/csv",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-csv", Size: 19},
			},
			{
				PartId:   "2",
				Filename: "scan.pdf",
				MimeType: "application/pdf",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-pdf", Size: 3072},
			},
		},
	}
}

func TestAttachmentParts(t *testing.T) {
	parts := attachmentParts("msg-1", multipartMessage())
	if len(parts) != 2 {
		t.Fatalf("found %d attachments, want 2", len(parts))
	}
	want := AttachmentInfo{
		MessageID:    "msg-1",
		PartID:       "1",
		AttachmentID: "att-csv",
		Filename:     "report.csv",
		MimeType:     "text/csv",
		Size:         19,
	}
	if *parts[0] != want {
		t.Errorf("first attachment = %+v, want %+v", *parts[0], want)
	}
}

func TestFindAttachment(t *testing.T) {
	parts := attachmentParts("msg-1", multipartMessage())

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"by attachment id", "att-pdf", "scan.pdf"},
		{"by part id", "1", "report.csv"},
		{"unknown", "att-gone", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findAttachment(parts, tt.id)
			if tt.want == "" {
				if got != nil {
					t.Errorf("findAttachment() = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Filename != tt.want {
				t.Errorf("findAttachment() = %+v, want %s", got, tt.want)
			}
		})
	}
}

// newTestClient serves the two Gmail endpoints the client uses.
func newTestClient(t *testing.T, attachmentSize int64) *Client {
	t.Helper()

	csv := base64.URLEncoding.EncodeToString([]byte("name,qty\nbolts,12\n"))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "msg-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","errors":[{"reason":"notFound"}]}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&gmail.Message{Id: "msg-1", Payload: multipartMessage()})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}/attachments/{aid}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("aid") != "att-csv" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Invalid attachment token"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&gmail.MessagePartBody{Data: csv, Size: attachmentSize})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewService(context.Background(), "work",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return c
}

func TestListAttachments(t *testing.T) {
	c := newTestClient(t, 19)

	got, err := c.ListAttachments(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	if len(got) != 2 || got[1].Filename != "scan.pdf" {
		t.Errorf("ListAttachments() = %+v, want report.csv and scan.pdf", got)
	}
	if c.Account() != "work" {
		t.Errorf("Account() = %q, want work", c.Account())
	}
}

func TestListAttachments_NotFound(t *testing.T) {
	c := newTestClient(t, 19)

	_, err := c.ListAttachments(context.Background(), "missing")
	if err == nil {
		t.Fatal("ListAttachments() expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestGetAttachmentRaw(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"attachment id", "att-csv"},
		{"part id", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, 19)

			raw, err := c.GetAttachmentRaw(context.Background(), "msg-1", tt.id)
			if err != nil {
				t.Fatalf("GetAttachmentRaw() error = %v", err)
			}
			if raw.MimeType != "text/csv" || raw.Filename != "report.csv" {
				t.Errorf("metadata = %q %q, want text/csv report.csv", raw.MimeType, raw.Filename)
			}
			if raw.AttachmentID != "att-csv" || raw.Size != 19 {
				t.Errorf("AttachmentID = %q Size = %d", raw.AttachmentID, raw.Size)
			}
			data, err := base64.URLEncoding.DecodeString(raw.Data)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "name,qty\nbolts,12\n" {
				t.Errorf("data = %q", data)
			}
		})
	}
}

func TestGetAttachmentRaw_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing ids", func(t *testing.T) {
		c := newTestClient(t, 19)
		if _, err := c.GetAttachmentRaw(ctx, "", "att-csv"); err == nil {
			t.Error("expected error for empty messageID")
		}
		if _, err := c.GetAttachmentRaw(ctx, "msg-1", ""); err == nil {
			t.Error("expected error for empty attachmentID")
		}
	})

	t.Run("unknown attachment", func(t *testing.T) {
		c := newTestClient(t, 19)
		_, err := c.GetAttachmentRaw(ctx, "msg-1", "att-gone")
		if !IsNotFound(err) {
			t.Errorf("GetAttachmentRaw() error = %v, want not found", err)
		}
	})

	t.Run("oversized", func(t *testing.T) {
		c := newTestClient(t, MaxAttachmentSize+1)
		if _, err := c.GetAttachmentRaw(ctx, "msg-1", "att-csv"); err == nil {
			t.Error("expected error for oversized attachment")
		}
	})
}

func TestMaxAttachmentSize(t *testing.T) {
	const expectedSize = 25 * 1024 * 1024 // 25MB

	if MaxAttachmentSize != expectedSize {
		t.Errorf("MaxAttachmentSize = %d, want %d", MaxAttachmentSize, expectedSize)
	}
}
