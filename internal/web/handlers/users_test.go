package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/database"
)

func storedIdentity(name string) database.StoredIdentity {
	return database.StoredIdentity{
		Name:      name,
		Variant:   "histogram",
		Encoding:  json.RawMessage(`{"histogram":[],"region":[0,0,1,1]}`),
		ImagePath: name + "_face.png",
	}
}

func TestUsersList(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(storedIdentity("Jiří Novák"))
	env.store.AddIdentity(storedIdentity("Alice"))
	h := NewUsersHandler(env.svc)

	tests := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{"all in registration order", "", []string{"Jiří Novák", "Alice"}},
		{"diacritic insensitive filter", "?q=jiri", []string{"Jiří Novák"}},
		{"no match", "?q=zed", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users"+tt.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp struct {
				Users      []map[string]any `json:"users"`
				TotalCount int              `json:"total_count"`
				Method     string           `json:"face_recognition_method"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.TotalCount != len(tt.wantNames) || len(resp.Users) != len(tt.wantNames) {
				t.Fatalf("total = %d users = %d, want %d", resp.TotalCount, len(resp.Users), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if resp.Users[i]["name"] != want {
					t.Errorf("user %d = %v, want %s", i, resp.Users[i]["name"], want)
				}
				if _, ok := resp.Users[i]["encoding"]; ok {
					t.Error("encoding must not be exposed")
				}
			}
			if resp.Method != "histogram" {
				t.Errorf("method = %q", resp.Method)
			}
		})
	}
}

func TestUsersGetAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(storedIdentity("Alice"))
	if _, err := env.files.Save(bytes.NewReader([]byte("img")), "face.png", "Alice"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	h := NewUsersHandler(env.svc)

	rec := httptest.NewRecorder()
	h.Get(rec, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/users/Alice", nil), map[string]string{"name": "Alice"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Get(rec, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/users/Bob", nil), map[string]string{"name": "Bob"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/users/Alice", nil), map[string]string{"name": "Alice"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != constants.MsgUserDeleted {
		t.Errorf("message = %q", body["message"])
	}
	if _, err := env.files.Read("Alice_face.png"); err == nil {
		t.Error("stored image not removed")
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/users/Alice", nil), map[string]string{"name": "Alice"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestUsersReencode(t *testing.T) {
	env := newTestEnv(t)
	photo := testPNG(t, 5)
	name, err := env.files.Save(bytes.NewReader(photo), "face.png", "Alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	identity := storedIdentity("Alice")
	identity.ImagePath = name
	identity.Variant = "embedding"
	identity.Encoding = json.RawMessage(`[0.1]`)
	env.store.AddIdentity(identity)
	h := NewUsersHandler(env.svc)

	rec := httptest.NewRecorder()
	h.Reencode(rec, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/api/v1/users/Alice/reencode", nil), map[string]string{"name": "Alice"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ := env.store.Get(t.Context(), "Alice")
	if got.Variant != "histogram" {
		t.Errorf("variant = %q, want histogram", got.Variant)
	}

	env.cls.boxes = nil
	rec = httptest.NewRecorder()
	h.Reencode(rec, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/api/v1/users/Alice/reencode", nil), map[string]string{"name": "Alice"}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("no-face status = %d, want 422", rec.Code)
	}
}

func TestUsersSimilar(t *testing.T) {
	env := newTestEnv(t)
	for _, u := range []struct{ name, enc string }{
		{"Alice", `[0, 0]`},
		{"Bob", `[0.3, 0]`},
		{"Carol", `[2, 0]`},
		{"Broken", `[`},
	} {
		env.store.AddIdentity(database.StoredIdentity{Name: u.name, Variant: "embedding", Encoding: json.RawMessage(u.enc)})
	}
	h := NewUsersHandler(env.svc)

	similar := func(name, query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+name+"/similar"+query, nil)
		h.Similar(rec, requestWithChiParams(req, map[string]string{"name": name}))
		return rec
	}

	rec := similar("Alice", "?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Name      string  `json:"name"`
		Method    string  `json:"method"`
		Tolerance float64 `json:"tolerance"`
		Neighbors []struct {
			Name            string  `json:"name"`
			Distance        float64 `json:"distance"`
			WithinTolerance bool    `json:"within_tolerance"`
		} `json:"neighbors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Method != "embedding" || resp.Tolerance != 0.6 || len(resp.Neighbors) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if n := resp.Neighbors[0]; n.Name != "Bob" || n.Distance != 0.3 || !n.WithinTolerance {
		t.Errorf("neighbor = %+v", n)
	}

	tests := []struct {
		name, user, query string
		want              int
	}{
		{"unknown user", "Nobody", "", http.StatusNotFound},
		{"zero limit", "Alice", "?limit=0", http.StatusBadRequest},
		{"non-numeric limit", "Alice", "?limit=all", http.StatusBadRequest},
		{"unreadable encoding", "Broken", "", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := similar(tt.user, tt.query); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
