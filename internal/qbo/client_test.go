package qbo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/qbo"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func noSleepPolicy() qbo.RetryPolicy {
	p := qbo.DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func newTestClient(srv *httptest.Server) *qbo.Client {
	return qbo.NewClient(testLogger(),
		qbo.WithBaseURL(srv.URL),
		qbo.WithHTTPClient(srv.Client()),
		qbo.WithRetryPolicy(noSleepPolicy()),
	)
}

var testConn = domain.Connection{AccessToken: "tok", RealmID: "realm1"}

func invoiceRows(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"Id":"%d"}`, i+1)
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestClient_QueryAll_Pagination(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query().Get("query")
		queries = append(queries, q)

		// Full first page, short second page.
		rows := invoiceRows(1000)
		if strings.Contains(q, "STARTPOSITION 1001") {
			rows = invoiceRows(3)
		}
		fmt.Fprintf(w, `{"QueryResponse":{"Invoice":%s}}`, rows)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	rows, err := c.QueryAll(context.Background(), testConn, domain.EntityInvoice, "")

	require.NoError(t, err)
	assert.Len(t, rows, 1003)
	require.Len(t, queries, 2)
	assert.Equal(t, "SELECT * FROM Invoice STARTPOSITION 1 MAXRESULTS 1000", queries[0])
	assert.Equal(t, "SELECT * FROM Invoice STARTPOSITION 1001 MAXRESULTS 1000", queries[1])
}

func TestClient_QueryAll_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"QueryResponse":{}}`)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv).QueryAll(context.Background(), testConn, domain.EntityInvoice, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_QueryPage_Where(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"QueryResponse":{"Payment":[{"Id":"9"}]}}`)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv).QueryPage(context.Background(), testConn, domain.EntityPayment, "TxnDate >= '2024-01-01'", 1, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "SELECT * FROM Payment WHERE TxnDate >= '2024-01-01' STARTPOSITION 1 MAXRESULTS 100", gotQuery)
}

func TestClient_QueryPage_RetriesThrottling(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"QueryResponse":{"Invoice":[{"Id":"1"}]}}`)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv).QueryPage(context.Background(), testConn, domain.EntityInvoice, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 3, calls)
}

func TestClient_FetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/estimate/42"):
			fmt.Fprint(w, `{"Estimate":{"Id":"42","DocNumber":"EST-42"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)

	raw, err := c.FetchByID(context.Background(), testConn, domain.EntityEstimate, "42")
	require.NoError(t, err)
	var doc domain.Transaction
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "EST-42", doc.DocNumber)

	// A missing entity is reported as absent, not as an error.
	raw, err = c.FetchByID(context.Background(), testConn, domain.EntityEstimate, "43")
	assert.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_FetchByID_NoEndpoint(t *testing.T) {
	c := qbo.NewClient(testLogger())
	_, err := c.FetchByID(context.Background(), testConn, domain.EntityTaxCode, "1")
	assert.ErrorIs(t, err, domain.ErrUnknownEntityType)
}

func TestClient_FetchByID_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		// A body mentioning another status must not confuse the detection.
		fmt.Fprint(w, `{"Fault":{"Error":[{"Detail":"token expired, not a status 404"}]}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchByID(context.Background(), testConn, domain.EntityEstimate, "42")
	require.Error(t, err)

	var statusErr *qbo.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestClient_DownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pdf-bytes"))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	att := &domain.Attachable{FileName: "inv.pdf", TempDownloadURI: srv.URL + "/file"}
	fc, err := c.DownloadFile(context.Background(), testConn, att)
	require.NoError(t, err)
	assert.Equal(t, "inv.pdf", fc.FileName)
	assert.Equal(t, []byte("pdf-bytes"), fc.Data)

	_, err = c.DownloadFile(context.Background(), testConn, &domain.Attachable{})
	assert.ErrorIs(t, err, domain.ErrNoFileURL)
}

func TestClient_UploadAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/company/realm1/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		meta := r.MultipartForm.Value["file_metadata_01"]
		require.Len(t, meta, 1)
		var decoded struct {
			AttachableRef []domain.AttachableRef `json:"AttachableRef"`
			FileName      string                 `json:"FileName"`
			Note          string                 `json:"Note"`
			Category      string                 `json:"Category"`
		}
		require.NoError(t, json.Unmarshal([]byte(meta[0]), &decoded))
		assert.Equal(t, "Document", decoded.Category)
		assert.Equal(t, "inv.pdf", decoded.FileName)
		require.Len(t, decoded.AttachableRef, 1)
		assert.Equal(t, "Invoice", decoded.AttachableRef[0].EntityRef.Type)
		assert.Equal(t, "77", decoded.AttachableRef[0].EntityRef.Value)

		files := r.MultipartForm.File["file_content_01"]
		require.Len(t, files, 1)
		assert.Equal(t, "inv.pdf", files[0].Filename)

		fmt.Fprint(w, `{"AttachableResponse":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	err := c.UploadAttachment(context.Background(), testConn, domain.EntityInvoice, "77",
		&port.FileContent{Data: []byte("pdf-bytes"), FileName: "inv.pdf"}, "copied")
	assert.NoError(t, err)
}

func TestClient_CompanyName_Fallbacks(t *testing.T) {
	body := `{"CompanyInfo":{"CompanyName":"","LegalName":"Acme Legal"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/company/realm1/companyinfo/realm1", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := newTestClient(srv)

	name, err := c.CompanyName(context.Background(), testConn)
	require.NoError(t, err)
	assert.Equal(t, "Acme Legal", name)

	body = `{"CompanyInfo":{}}`
	name, err = c.CompanyName(context.Background(), testConn)
	require.NoError(t, err)
	assert.Equal(t, "", name)
}
