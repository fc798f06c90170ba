package integrity

import (
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
)

// FormatSignature renders the user-visible proof artifact for a sealed
// report. The output is deterministic for a given hash and timestamp.
func FormatSignature(hash string, signedAt time.Time) string {
	return fmt.Sprintf(
		"-----BEGIN MILEAGE REPORT SIGNATURE-----\n"+
			"SHA-256: %s\n"+
			"Signed-At: %s\n"+
			"-----END MILEAGE REPORT SIGNATURE-----",
		hash,
		signedAt.UTC().Format(time.RFC3339),
	)
}

// VerifyReport recomputes the report digest from an exported payload and
// compares it against the stored hash. A mismatch is reported as an
// INTEGRITY_MISMATCH error, never silently accepted.
func VerifyReport(p ReportPayload, storedHash string) error {
	computed, err := HashReport(p)
	if err != nil {
		return fmt.Errorf("failed to recompute report hash: %w", err)
	}
	if computed != storedHash {
		return apperr.Newf(apperr.CodeIntegrityMismatch,
			"report hash mismatch: stored %s, computed %s (tampered or corrupted)",
			storedHash, computed)
	}
	return nil
}

// SignatureQR renders a signature block as a QR code PNG for embedding in
// exported documents.
func SignatureQR(signature string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(signature, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature QR: %w", err)
	}
	return png, nil
}
