// Package internaldefs holds the metric families, labels and bucket layout shared by the
// Prometheus and OTel exporters, so both publish identical series.
package internaldefs
