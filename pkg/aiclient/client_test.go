package aiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

func TestAgentQuerySendsPayload(t *testing.T) {
	var captured AgentQuery
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ai/agentQuery" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `{"agent_output":{"llm_output":"Try the lamp","raw_output":[]}}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL + "/ai/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	payload := assistant.Payload{
		Query:   "desk lamp",
		Context: []assistant.Message{{Role: assistant.RoleUser, Content: "hi"}},
		BrowsingContext: &assistant.BrowsingContext{
			RecentSearches: []string{"lamp"},
			RecentlyViewed: []string{},
			CartItems:      []assistant.CartItem{},
		},
	}
	resp, err := client.AgentQuery(context.Background(), NewTextQuery("", payload))
	if err != nil {
		t.Fatalf("agent query: %v", err)
	}
	if resp.Text() != "Try the lamp" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if captured.QueryType != "text" || captured.Content.TextQuery != "desk lamp" {
		t.Fatalf("unexpected query %+v", captured)
	}
	if captured.UID != "anonymous" || captured.Action != "toolagent" {
		t.Fatalf("unexpected uid/action %q/%q", captured.UID, captured.Action)
	}
	if len(captured.Context) != 1 || captured.BrowsingContext == nil {
		t.Fatalf("expected context and browsing context to be forwarded")
	}
}

func TestAgentResponseText(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{body: `{"agent_output":{"llm_output":"nested"}}`, want: "nested"},
		{body: `{"llm_output":"flat"}`, want: "flat"},
		{body: `{"agent_output":{"llm_output":null},"llm_output":"x"}`, want: "x"},
		{body: `{"agent_output":{"llm_output":{"a":1}}}`, want: `{"a":1}`},
		{body: `{}`, want: ""},
	}
	for _, tc := range cases {
		body, want := tc.body, tc.want
		var resp AgentResponse
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if got := resp.Text(); got != want {
			t.Fatalf("body %s: expected %q, got %q", body, want, got)
		}
	}
}

func TestAgentQueryUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"supervisor down"}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.AgentQuery(context.Background(), NewTextQuery("u1", assistant.Payload{Query: "x"}))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "supervisor down") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestAgentQueryRequiresText(t *testing.T) {
	client, err := NewClient("http://ai.test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.AgentQuery(context.Background(), NewTextQuery("u1", assistant.Payload{Query: "  "}))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImageSearchUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/imageSearch" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "pixels" || header.Filename != "shoe.png" {
			t.Fatalf("unexpected upload %q %q", header.Filename, data)
		}
		_, _ = io.WriteString(w, `{"agent_output":{"llm_output":"found 2","raw_output":[{"id":"p1"}]}}`)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := client.ImageSearch(context.Background(), "/tmp/shoe.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("image search: %v", err)
	}
	if resp.Text() != "found 2" || len(resp.Raw()) == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
