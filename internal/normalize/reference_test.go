package normalize

import "testing"

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"ref marker", "VIREMENT REF:INV-1234 MERCI", "INV-1234"},
		{"ref marker with spaces", "PAIEMENT REF : COT-2024", "COT-2024"},
		{"reference marker", "REFERENCE: MEM-2024/01", "MEM-2024/01"},
		{"communication marker", "COMMUNICATION: ABC-9876", "ABC-9876"},
		{"mededeling marker", "OVERSCHRIJVING MEDEDELING: LID-2024", "LID-2024"},
		{"belgian structured", "PAIEMENT +++123/4567/89012+++ RECU", "123/4567/89012"},
		{"ogm marker", "OGM: 123/4567/89012", "123/4567/89012"},
		{"generic invoice shape", "FACTURE INV-2024 PAYEE", "INV-2024"},
		{"generic without dash", "MEMBRE MEM2024 COTISATION", "MEM2024"},
		{"lowercase marker", "virement ref:inv-1234", "inv-1234"},
		{"no reference", "LOYER MARS", ""},
		{"digits alone do not match", "VIREMENT 123456", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractReference(tt.description); got != tt.want {
				t.Errorf("ExtractReference(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestExtractReferencePrefersStructuredMarkers(t *testing.T) {
	// The explicit marker wins over the generic letter-digit heuristic.
	got := ExtractReference("ABC-9999 VIREMENT REF:MEM-2024")
	if got != "MEM-2024" {
		t.Errorf("ExtractReference() = %q, want MEM-2024", got)
	}
}
