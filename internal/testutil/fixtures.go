// Package testutil provides shared test fixtures for churnprep packages.
// These helpers build raw extracts and typed tables the way the ingest stage would.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/churnlab/churnprep/internal/logger"
)

// TelcoHeader is the header row of the raw telco extract.
var TelcoHeader = []string{
	"customerID", "gender", "SeniorCitizen", "Partner", "Dependents", "tenure",
	"PhoneService", "MultipleLines", "InternetService", "OnlineSecurity",
	"OnlineBackup", "DeviceProtection", "TechSupport", "StreamingTV",
	"StreamingMovies", "Contract", "PaperlessBilling", "PaymentMethod",
	"MonthlyCharges", "TotalCharges", "Churn",
}

// Customer is one raw record with every cell as text.
type Customer struct {
	ID               string
	Gender           string
	SeniorCitizen    string
	Partner          string
	Dependents       string
	Tenure           string
	PhoneService     string
	MultipleLines    string
	InternetService  string
	OnlineSecurity   string
	OnlineBackup     string
	DeviceProtection string
	TechSupport      string
	StreamingTV      string
	StreamingMovies  string
	Contract         string
	PaperlessBilling string
	PaymentMethod    string
	MonthlyCharges   string
	TotalCharges     string
	Churn            string
}

// NewCustomer returns a consistent fiber customer with phone and two add-ons.
func NewCustomer(id string) Customer {
	return Customer{
		ID:               id,
		Gender:           "Female",
		SeniorCitizen:    "0",
		Partner:          "Yes",
		Dependents:       "No",
		Tenure:           "12",
		PhoneService:     "Yes",
		MultipleLines:    "No",
		InternetService:  "Fiber optic",
		OnlineSecurity:   "Yes",
		OnlineBackup:     "No",
		DeviceProtection: "No",
		TechSupport:      "Yes",
		StreamingTV:      "No",
		StreamingMovies:  "No",
		Contract:         "Month-to-month",
		PaperlessBilling: "Yes",
		PaymentMethod:    "Electronic check",
		MonthlyCharges:   "70.35",
		TotalCharges:     "844.2",
		Churn:            "No",
	}
}

// WithoutInternet turns c into a phone-only customer.
func (c Customer) WithoutInternet() Customer {
	c.InternetService = "No"
	c.OnlineSecurity = "No internet service"
	c.OnlineBackup = "No internet service"
	c.DeviceProtection = "No internet service"
	c.TechSupport = "No internet service"
	c.StreamingTV = "No internet service"
	c.StreamingMovies = "No internet service"
	return c
}

// WithoutPhone turns c into an internet-only customer.
func (c Customer) WithoutPhone() Customer {
	c.PhoneService = "No"
	c.MultipleLines = "No phone service"
	return c
}

// Record returns the cells of c in TelcoHeader order.
func (c Customer) Record() []string {
	return []string{
		c.ID, c.Gender, c.SeniorCitizen, c.Partner, c.Dependents, c.Tenure,
		c.PhoneService, c.MultipleLines, c.InternetService, c.OnlineSecurity,
		c.OnlineBackup, c.DeviceProtection, c.TechSupport, c.StreamingTV,
		c.StreamingMovies, c.Contract, c.PaperlessBilling, c.PaymentMethod,
		c.MonthlyCharges, c.TotalCharges, c.Churn,
	}
}

// Cohort returns n customers C0001..Cn; every third one churns and every
// fifth one has no internet service.
func Cohort(n int) []Customer {
	out := make([]Customer, 0, n)
	for i := 1; i <= n; i++ {
		c := NewCustomer(fmt.Sprintf("C%04d", i))
		c.Tenure = fmt.Sprint(i % 72)
		c.MonthlyCharges = fmt.Sprintf("%.2f", 20+float64(i%50)*1.5)
		c.TotalCharges = fmt.Sprintf("%.2f", float64(i%72)*(20+float64(i%50)*1.5))
		if i%3 == 0 {
			c.Churn = "Yes"
		}
		if i%5 == 0 {
			c = c.WithoutInternet()
		}
		if i%7 == 0 {
			c.Contract = "Two year"
		}
		if i%72 == 0 {
			// fresh customers are billed nothing yet
			c.TotalCharges = " "
		}
		out = append(out, c)
	}
	return out
}

// TelcoCSV renders customers as a raw extract with the telco header.
func TelcoCSV(t testing.TB, customers ...Customer) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(TelcoHeader))
	for _, c := range customers {
		require.NoError(t, w.Write(c.Record()))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// BufferLogger returns a debug logger writing into the returned buffer.
func BufferLogger() (logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC), &buf
}
