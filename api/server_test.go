package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleCSV = `Order ID,Order date,Invoice due date,Family,ASIN,Title,Shipment Quantity,Unit price excl. tax,Shipping and handling excl. tax,Promotions and discounts excl. tax,Tax rate,Total tax amount,POL,PO line item ID
112-0001,2025-01-05,2025-02-04,7015-10,B000000001,The Go Programming Language,2,9.99,0.00,0.00,0%,0.00,POL-001001,1
`

const sampleStream = "UNA:+.? 'UNB+UNOC:2+1694510101:31B+3333159:31B+250120:1430+0120143045123'" +
	"UNH+491150+INVOIC:D:96A:UN:EAN008'BGM+380+491150'DTM+137:20250105:102'" +
	"LIN+1++B000000001:EN'IMD+L+050+:::THE GO PROGRAMMING LANGUAGE'QTY+47:2'MOA+203:19.98'" +
	"UNS+S'CNT+1:2'CNT+2:1'MOA+9:19.98'UNT+13+491150'UNZ+1+0120143045123'"

func TestNew(t *testing.T) {
	server := New(DefaultConfig())

	if server == nil {
		t.Fatal("Expected server to be created")
	}
	if server.mux == nil {
		t.Fatal("Expected mux to be initialized")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Expected port ':8080', got '%s'", cfg.Port)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := New(DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
}

func TestConvertEndpoint_MethodNotAllowed(t *testing.T) {
	server := New(DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/convert", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestConvertEndpoint_NoFile(t *testing.T) {
	server := New(DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	req.Header.Set("Content-Type", "multipart/form-data")
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestConvertEndpoint_UnknownVendor(t *testing.T) {
	server := New(DefaultConfig())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "export.txt")
	part.Write([]byte("whatever"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestConvertEndpoint_AmazonCSV(t *testing.T) {
	server := New(DefaultConfig())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "orders.csv")
	part.Write([]byte(sampleCSV))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	stream := w.Body.String()
	if !strings.HasPrefix(stream, "UNA:+.? '") {
		t.Errorf("Expected stream to start with service advice, got %q", stream[:20])
	}
	if !strings.Contains(stream, "BGM+380+112-0001'") {
		t.Error("Expected BGM segment for invoice 112-0001")
	}
	if !strings.Contains(stream, "QTY+47:2'") {
		t.Error("Expected quantity segment")
	}
}

func TestConvertEndpoint_VendorFormValue(t *testing.T) {
	server := New(DefaultConfig())

	// Extension says nothing; the vendor form value decides.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("vendor", "amazon")
	part, _ := writer.CreateFormFile("file", "export.dat")
	part.Write([]byte(sampleCSV))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "BGM+380+112-0001'") {
		t.Error("Expected BGM segment for invoice 112-0001")
	}
}

func TestParseEndpoint_RawBody(t *testing.T) {
	server := New(DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(sampleStream))
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]struct {
		InvoiceNumber string `json:"invoice_number"`
		Lines         []struct {
			Quantity string `json:"quantity"`
			Amount   string `json:"amount"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	inv, ok := response["491150"]
	if !ok {
		t.Fatal("Expected message 491150 in response")
	}
	if inv.InvoiceNumber != "491150" {
		t.Errorf("Expected invoice number '491150', got '%s'", inv.InvoiceNumber)
	}
	if len(inv.Lines) != 1 || inv.Lines[0].Quantity != "2" || inv.Lines[0].Amount != "19.98" {
		t.Errorf("Unexpected lines: %+v", inv.Lines)
	}
}

func TestParseEndpoint_MultipartFile(t *testing.T) {
	server := New(DefaultConfig())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "invoices.edi")
	part.Write([]byte(sampleStream))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/parse", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"491150"`) {
		t.Error("Expected message 491150 in response")
	}
}

func TestParseEndpoint_MethodNotAllowed(t *testing.T) {
	server := New(DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/parse", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestVendorForFilename(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"orders.csv", "amazon"},
		{"Orders.CSV", "amazon"},
		{"invoice.xlsx", "workday"},
		{"export.txt", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		result := vendorForFilename(tt.filename)
		if result != tt.expected {
			t.Errorf("vendorForFilename(%q) = '%s', expected '%s'", tt.filename, result, tt.expected)
		}
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		input    []string
		expected string
	}{
		{[]string{"", "", "third"}, "third"},
		{[]string{"first", "second"}, "first"},
		{[]string{"", ""}, ""},
		{[]string{}, ""},
		{[]string{"only"}, "only"},
	}

	for _, tt := range tests {
		result := coalesce(tt.input...)
		if result != tt.expected {
			t.Errorf("coalesce(%v) = '%s', expected '%s'", tt.input, result, tt.expected)
		}
	}
}

func TestHandler(t *testing.T) {
	server := New(DefaultConfig())
	handler := server.Handler()

	if handler == nil {
		t.Fatal("Expected handler to be returned")
	}

	// Verify it's the same mux
	if handler != server.mux {
		t.Error("Expected handler to be the server's mux")
	}
}
