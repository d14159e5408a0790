package codegen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	batchIDPattern     = regexp.MustCompile(`^[1-9][0-9]*_[A-Z0-9\-]+$`)
	projectCodePattern = regexp.MustCompile(`^[A-Z0-9\-]+$`)
)

// ValidProjectCode reports whether code can appear in a batch id.
func ValidProjectCode(code string) bool {
	return projectCodePattern.MatchString(code)
}

// ValidBatchID checks the <n>_<project_code> form.
func ValidBatchID(id string) bool {
	return batchIDPattern.MatchString(id)
}

// BatchID formats the n-th batch of a project.
func BatchID(n int, projectCode string) string {
	return fmt.Sprintf("%d_%s", n, projectCode)
}

// ParseBatchNumber returns the numeric prefix of a batch id.
func ParseBatchNumber(batchID string) (int, bool) {
	prefix, _, ok := strings.Cut(batchID, "_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NextBatchID is one past the highest batch number seen for the project.
func NextBatchID(existing []string, projectCode string) string {
	max := 0
	for _, id := range existing {
		if n, ok := ParseBatchNumber(id); ok && n > max {
			max = n
		}
	}
	return BatchID(max+1, projectCode)
}

// Document number series: <PREFIX>-<YYMM>-<####>, counted per prefix and month.
const (
	PrefixReturnableGatePass = "CIMRGP"
	PrefixInternalTransfer   = "CIMITP"
	PrefixPurchaseOrder      = "CIMPO"
	PrefixDeliveryChallan    = "CIMDC"

	documentSeqWidth = 4
)

var gatePassPattern = regexp.MustCompile(`^CIM(RGP|ITP)-[0-9]{2}(0[1-9]|1[0-2])-[0-9]{4}$`)

// ValidGatePassNumber checks CIMRGP-YYMM-#### and CIMITP-YYMM-####.
func ValidGatePassNumber(s string) bool {
	return gatePassPattern.MatchString(s)
}

// SeriesPrefix is the shared leading part of every number in a month's series.
func SeriesPrefix(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, at.Format("0601"))
}

// NextDocumentNumber follows last, the highest number issued in the series so
// far ("" when none).
func NextDocumentNumber(prefix string, at time.Time, last string) (string, error) {
	series := SeriesPrefix(prefix, at)
	seq := 0
	if last != "" {
		if !strings.HasPrefix(last, series) {
			return "", fmt.Errorf("number %q is not in series %q", last, series)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(last, series))
		if err != nil {
			return "", fmt.Errorf("parse sequence of %q: %w", last, err)
		}
		seq = n
	}
	s, err := FormatSequence(seq+1, documentSeqWidth)
	if err != nil {
		return "", fmt.Errorf("%s: %w", series, err)
	}
	return series + s, nil
}
