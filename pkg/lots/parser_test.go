package lots

import (
	"strings"
	"testing"

	"github.com/titof2710/Loto-sub000/pkg/loto"
)

const primaryListing = `1 Q Bon d'achat 20 €
2 DQ Panier garni
3 CP Jambon de pays
4 Q Bouteille de champagne
5 DQ Bon d'achat 50 €
6 CP Téléviseur
7 Q Plateau de fromages`

func TestPrimaryPass(t *testing.T) {
	res := ParseLotList(primaryListing)
	if res.Pass != "primary" {
		t.Fatalf("expected primary pass, got %s", res.Pass)
	}
	if len(res.Entries) != 7 {
		t.Fatalf("expected 7 entries got %d", len(res.Entries))
	}
	if res.Entries[0].Tier != loto.TierQuine || res.Entries[0].Description != "Bon d'achat 20 €" {
		t.Fatalf("lot 1 parsed wrong: %+v", res.Entries[0])
	}
	if res.Entries[5].Tier != loto.TierCartonPlein {
		t.Fatalf("lot 6 should be carton plein: %+v", res.Entries[5])
	}
	if res.Synthesized != 0 || res.Confidence != 1 {
		t.Fatalf("clean listing should be fully read: %+v", res)
	}
}

func TestLiteralTierPreserved(t *testing.T) {
	// lot 2 printed as Q even though the cycle implies DQ: keep what was read
	listing := strings.Replace(primaryListing, "2 DQ", "2 Q", 1)
	res := ParseLotList(listing)
	if res.Entries[1].Tier != loto.TierQuine {
		t.Fatalf("read tier was overridden: %+v", res.Entries[1])
	}
}

func TestFallsBackToFlexible(t *testing.T) {
	// fewer than 6 line-shaped entries: line pass must be refused
	raw := "tirage du 12 mars   1 Q Bon d'achat 20 € 2 DQ Panier garni 3 CP Jambon 4 Q Vélo 5 DQ Cafetière 6 CP Séjour deux nuits"
	res := ParseLotList(raw)
	if res.Pass != "flexible" {
		t.Fatalf("expected flexible pass, got %s", res.Pass)
	}
	if len(res.Entries) != 6 {
		t.Fatalf("expected 6 entries got %d", len(res.Entries))
	}
	if res.Entries[1].Description != "Panier garni" {
		t.Fatalf("windowed description wrong: %q", res.Entries[1].Description)
	}
	if res.Entries[5].Description != "Séjour deux nuits" {
		t.Fatalf("last description should run to end of text: %q", res.Entries[5].Description)
	}
}

func TestFlexibleKeepsFirstOccurrence(t *testing.T) {
	raw := "1 Q Bon d'achat 20 € 2 DQ Panier 1 CP fausse relecture 3 CP Jambon 4 Q Vélo 5 DQ Cafetière 6 CP Séjour"
	res := ParseLotList(raw)
	if res.Entries[0].Tier != loto.TierQuine {
		t.Fatalf("second occurrence of lot 1 should be ignored: %+v", res.Entries[0])
	}
}

func TestGapFilling(t *testing.T) {
	listing := strings.Replace(primaryListing, "3 CP Jambon de pays\n", "", 1)
	res := ParseLotList(listing)
	if len(res.Entries) != 7 {
		t.Fatalf("expected gap-filled list of 7 got %d", len(res.Entries))
	}
	lot3 := res.Entries[2]
	if lot3.Number != 3 || !lot3.Synthesized {
		t.Fatalf("lot 3 should be synthesized: %+v", lot3)
	}
	// cycle implies carton plein for lot 3
	if lot3.Tier != loto.TierCartonPlein {
		t.Fatalf("expected carton plein default got %s", lot3.Tier)
	}
	if res.Synthesized != 1 || res.Confidence >= 1 {
		t.Fatalf("confidence should reflect the synthesized entry: %+v", res)
	}
}

func TestDescriptionTruncationAtAmount(t *testing.T) {
	long := strings.Repeat("lot exceptionnel ", 6) // > 80 chars
	raw := "1 Q Bon d'achat 50 € " + long + "2 DQ Panier 3 CP Jambon 4 Q Vélo 5 DQ Cafetière 6 CP Séjour"
	res := ParseLotList(raw)
	d := res.Entries[0].Description
	if !strings.HasSuffix(d, "50 €") {
		t.Fatalf("expected truncation at currency boundary, got %q", d)
	}
}

func TestEmptyListing(t *testing.T) {
	res := ParseLotList("")
	if len(res.Entries) != 0 || res.Confidence != 0 {
		t.Fatalf("empty input should yield empty result: %+v", res)
	}
}

func TestOutputSortedByLotNumber(t *testing.T) {
	raw := "4 Q Vélo 1 Q Bon d'achat 20 € 6 CP Séjour 2 DQ Panier 5 DQ Cafetière 3 CP Jambon"
	res := ParseLotList(raw)
	for i, e := range res.Entries {
		if e.Number != i+1 {
			t.Fatalf("entries not sorted: %+v", res.Entries)
		}
	}
}
