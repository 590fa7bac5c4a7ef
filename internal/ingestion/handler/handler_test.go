package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"certledger/internal/ingestion"
)

type stubPipeline struct {
	report ingestion.Report
	err    error
	issuer string
	body   string
}

func (s *stubPipeline) Ingest(_ context.Context, r io.Reader, issuer string) (ingestion.Report, error) {
	b, _ := io.ReadAll(r)
	s.body = string(b)
	s.issuer = issuer
	return s.report, s.err
}

type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	pipeline *stubPipeline
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.pipeline = &stubPipeline{}
	r := chi.NewRouter()
	New(s.pipeline, slog.New(slog.DiscardHandler), 1<<20).Register(r)
	s.router = r
}

func (s *HandlerSuite) upload(filename, contentType, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="csvFile"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	s.Require().NoError(err)
	_, err = part.Write([]byte(content))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/certificates/bulk", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestBulkUploadReturnsReportEnvelope() {
	s.pipeline.report = ingestion.Report{
		Summary: ingestion.Summary{Total: 3, Inserted: 2, Failed: 1},
		Errors:  []ingestion.RowError{{Row: 2, Error: "missing required fields: student_name"}},
	}

	rec := s.upload("batch.csv", "text/csv", "Roll Number,studentName,courseName\nR1,Alice,CS\n")

	s.Equal(http.StatusOK, rec.Code)
	var got struct {
		Status  string               `json:"status"`
		Summary ingestion.Summary    `json:"summary"`
		Errors  []ingestion.RowError `json:"errors"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal("success", got.Status)
	s.Equal(3, got.Summary.Total)
	s.Len(got.Errors, 1)
	s.Contains(s.pipeline.body, "R1,Alice,CS")
}

func (s *HandlerSuite) TestIssuerDefaultsToSystem() {
	s.upload("batch.csv", "text/csv", "h\n")
	s.Equal("system", s.pipeline.issuer)
}

func (s *HandlerSuite) TestMissingFile() {
	req := httptest.NewRequest(http.MethodPost, "/certificates/bulk", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRejectsNonCSV() {
	rec := s.upload("photo.png", "image/png", "not a csv")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCSVExtensionWithGenericContentType() {
	rec := s.upload("batch.csv", "application/octet-stream", "h\n")
	s.Equal(http.StatusOK, rec.Code)
}
