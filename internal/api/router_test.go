package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"preuvio/internal/analysis"
	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/evidence"
	"preuvio/internal/expiration"
	"preuvio/internal/export"
	"preuvio/internal/magiclink"
	"preuvio/internal/notification"
	"preuvio/internal/notification/mocks"
	"preuvio/internal/objectstore"
	"preuvio/internal/platform/config"
	"preuvio/internal/profile"
	"preuvio/internal/ratelimit"
	"preuvio/internal/review"
	"preuvio/internal/rules"
	tenantmodels "preuvio/internal/tenant/models"
	tenantstore "preuvio/internal/tenant/store"
	"preuvio/pkg/domain"
	txcontext "preuvio/pkg/platform/tx"
	"preuvio/pkg/secrets"
)

const jobSecret = "sweep-secret"

type testServer struct {
	srv        *httptest.Server
	jwt        *authn.JWTService
	mailer     *mocks.MockMailer
	platformID domain.PlatformID
	profileID  domain.ProfileID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now().UTC()

	platforms := tenantstore.NewInMemory()
	plat, err := tenantmodels.NewPlatform(domain.NewPlatformID(), "Acme Marketplace", "acme-marketplace", now)
	require.NoError(t, err)
	require.NoError(t, platforms.Create(context.Background(), plat))

	profiles := profile.NewInMemoryStore()
	prof, err := profile.New(domain.NewProfileID(), plat.ID, "Plomberie Dupont", "contact@dupont.example", now)
	require.NoError(t, err)
	require.NoError(t, profiles.Create(context.Background(), prof))

	rulesStore := rules.NewInMemoryStore()
	_, err = rules.SeedGlobalTemplate(rulesStore)
	require.NoError(t, err)

	auditStore := audit.NewInMemoryStore()
	auditPub := audit.NewPublisher(auditStore, logger)

	linkSvc := magiclink.NewService(magiclink.NewInMemoryStore(), profiles, platforms, rulesStore,
		auditPub, "https://app.preuvio.example", logger)

	notifs := notification.NewInMemoryStore()
	mailer := mocks.NewMockMailer(ctrl)
	dispatcher := notification.NewDispatcher(notifs, mailer, platforms, profiles,
		auditPub, nil, "https://app.preuvio.example", logger)

	evidences := evidence.NewInMemoryStore()
	evidenceSvc := evidence.NewService(evidences, linkSvc, profiles, objectstore.NewInMemoryStore(),
		ratelimit.NewSlidingWindow(20, time.Minute), nil, dispatcher, auditPub, nil,
		evidence.MaxUploadBytes, logger)

	reviewSvc := review.NewService(evidences, profiles, txcontext.PassthroughRunner{}, auditPub, logger)
	scanner := expiration.NewScanner(evidences, profiles, rulesStore, notifs, dispatcher,
		auditPub, nil, 50, logger)

	credHash, err := secrets.Hash(jobSecret)
	require.NoError(t, err)

	jwtSvc := authn.NewJWTService("test-signing-key", "preuvio")

	router := NewRouter(Deps{
		Logger:       logger,
		JWTValidator: jwtSvc,
		JobCredHash:  credHash,
		MagicLinks:   linkSvc,
		Evidences:    evidenceSvc,
		Reviews:      reviewSvc,
		Scanner:      scanner,
		Dispatcher:   dispatcher,
		Analyzer:     analysis.NewClient(config.AnalysisConfig{}),
		Exporter:     export.NewExporter(profiles, evidences, auditStore),
		Audit:        auditPub,
		Platforms:    platforms,
		Profiles:     profiles,
		Rules:        rulesStore,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:        srv,
		jwt:        jwtSvc,
		mailer:     mailer,
		platformID: plat.ID,
		profileID:  prof.ID,
	}
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := ts.jwt.GenerateAccessToken("user-1", ts.platformID.String(), authn.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) doJSON(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestMagicLinkEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("issuing requires a dashboard token", func(t *testing.T) {
		resp := ts.doJSON(t, http.MethodPost, "/api/magic-links", "", map[string]string{
			"platform_id": ts.platformID.String(),
			"profile_id":  ts.profileID.String(),
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("issue then validate round trip", func(t *testing.T) {
		resp := ts.doJSON(t, http.MethodPost, "/api/magic-links", ts.adminToken(t), map[string]string{
			"platform_id": ts.platformID.String(),
			"profile_id":  ts.profileID.String(),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		issued := decodeBody[magiclink.IssuedLink](t, resp)
		assert.NotEmpty(t, issued.RawToken)

		resp = ts.doJSON(t, http.MethodPost, "/api/magic-links/validate", "", map[string]string{
			"token": issued.RawToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		lc := decodeBody[magiclink.LinkContext](t, resp)
		assert.Equal(t, "Acme Marketplace", lc.Platform.Name)
		assert.NotEmpty(t, lc.RequiredDocuments)
	})

	t.Run("unknown tokens return 404", func(t *testing.T) {
		resp := ts.doJSON(t, http.MethodPost, "/api/magic-links/validate", "", map[string]string{
			"token": "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func uploadEvidence(t *testing.T, ts *testServer, token, docType string, content []byte, contentType string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("token", token))
	require.NoError(t, w.WriteField("document_type", docType))

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s.bin"`, docType))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/evidences", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestEvidenceFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

	resp := ts.doJSON(t, http.MethodPost, "/api/magic-links", ts.adminToken(t), map[string]string{
		"platform_id": ts.platformID.String(),
		"profile_id":  ts.profileID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issued := decodeBody[magiclink.IssuedLink](t, resp)

	t.Run("upload, approve, profile promoted", func(t *testing.T) {
		resp := uploadEvidence(t, ts, issued.RawToken, "kbis", []byte("%PDF-1.7"), "application/pdf")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ev := decodeBody[evidence.Evidence](t, resp)
		assert.Equal(t, evidence.ReviewPending, ev.ReviewStatus)

		resp = ts.doJSON(t, http.MethodPost, "/api/evidences/"+ev.ID.String()+"/approve", ts.adminToken(t), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		approved := decodeBody[evidence.Evidence](t, resp)
		assert.Equal(t, evidence.ReviewApproved, approved.ReviewStatus)

		resp = ts.doJSON(t, http.MethodGet, "/api/profiles/"+ts.profileID.String(), ts.adminToken(t), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		prof := decodeBody[profile.Profile](t, resp)
		assert.Equal(t, profile.StatusApproved, prof.Status)
	})

	t.Run("unsupported media returns 415", func(t *testing.T) {
		resp := uploadEvidence(t, ts, issued.RawToken, "kbis", []byte("hello"), "text/plain")
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("rejecting needs a reason", func(t *testing.T) {
		resp := uploadEvidence(t, ts, issued.RawToken, "iban", []byte("%PDF-1.7"), "application/pdf")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ev := decodeBody[evidence.Evidence](t, resp)

		resp = ts.doJSON(t, http.MethodPost, "/api/evidences/"+ev.ID.String()+"/reject", ts.adminToken(t),
			map[string]string{"reason": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = ts.doJSON(t, http.MethodPost, "/api/evidences/"+ev.ID.String()+"/reject", ts.adminToken(t),
			map[string]string{"reason": "illegible"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestJobEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

	t.Run("rejects a missing credential", func(t *testing.T) {
		resp := ts.doJSON(t, http.MethodPost, "/api/jobs/daily-expirations", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("runs the sweep with the shared credential", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/jobs/daily-expirations", nil)
		require.NoError(t, err)
		req.Header.Set("X-Job-Credential", jobSecret)
		resp, err := ts.srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		res := decodeBody[expiration.Result](t, resp)
		assert.Zero(t, res.Errors)
	})
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doJSON(t, http.MethodGet, "/api/export/audit?platform_id="+ts.platformID.String(), ts.adminToken(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# profiles")
}
