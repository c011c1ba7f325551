package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/settlement"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func animal(slot, code, amount string) models.Wager {
	return models.Wager{Slot: slot, Kind: models.KindAnimal, Selection: code, Amount: dec(amount)}
}

func special(slot, token, amount string) models.Wager {
	return models.Wager{Slot: slot, Kind: models.KindSpecial, Selection: token, Amount: dec(amount)}
}

func tripleta(a, b, c, amount string) models.Tripleta {
	return models.Tripleta{Animals: [3]string{a, b, c}, Amount: dec(amount)}
}

func TestSettleWager_Animal(t *testing.T) {
	tests := []struct {
		name       string
		wager      models.Wager
		results    settlement.Results
		wantStatus settlement.Status
		wantPrize  string
	}{
		{"no result yet", animal("09:00 AM", "5", "10"), settlement.Results{}, settlement.Pending, "0"},
		{"match pays 35", animal("09:00 AM", "5", "10"), settlement.Results{"09:00 AM": "5"}, settlement.Won, "350"},
		{"owl pays 70", animal("09:00 AM", "40", "10"), settlement.Results{"09:00 AM": "40"}, settlement.Won, "700"},
		{"miss", animal("09:00 AM", "5", "10"), settlement.Results{"09:00 AM": "6"}, settlement.Lost, "0"},
		{"zero is not double zero", animal("09:00 AM", "0", "10"), settlement.Results{"09:00 AM": "00"}, settlement.Lost, "0"},
		{"other slot ignored", animal("09:00 AM", "5", "10"), settlement.Results{"10:00 AM": "5"}, settlement.Pending, "0"},
		{"fractional stake", animal("09:00 AM", "12", "0.50"), settlement.Results{"09:00 AM": "12"}, settlement.Won, "17.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := settlement.SettleWager(tt.wager, tt.results)
			if o.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, o.Status)
			}
			if !o.Prize.Equal(dec(tt.wantPrize)) {
				t.Errorf("expected prize %s, got %s", tt.wantPrize, o.Prize)
			}
		})
	}
}

func TestSettleWager_Special(t *testing.T) {
	tests := []struct {
		token  string
		result string
		want   bool
	}{
		{"ROJO", "1", true},
		{"ROJO", "2", false},
		{"NEGRO", "2", true},
		{"NEGRO", "40", true},
		{"NEGRO", "1", false},
		{"PAR", "2", true},
		{"PAR", "3", false},
		{"IMPAR", "3", true},
		{"IMPAR", "40", false},
		{"PAR", "40", true},
		// excluded codes lose everything
		{"ROJO", "0", false},
		{"NEGRO", "0", false},
		{"PAR", "0", false},
		{"IMPAR", "0", false},
		{"ROJO", "00", false},
		{"NEGRO", "00", false},
		{"PAR", "00", false},
		{"IMPAR", "00", false},
	}

	for _, tt := range tests {
		t.Run(tt.token+"_"+tt.result, func(t *testing.T) {
			o := settlement.SettleWager(special("10:00 AM", tt.token, "20"), settlement.Results{"10:00 AM": tt.result})
			if tt.want {
				if o.Status != settlement.Won || !o.Prize.Equal(dec("40")) {
					t.Errorf("expected win of 40, got %s %s", o.Status, o.Prize)
				}
			} else if o.Status != settlement.Lost || !o.Prize.IsZero() {
				t.Errorf("expected loss, got %s %s", o.Status, o.Prize)
			}
		})
	}
}

func TestSettleTripleta(t *testing.T) {
	tr := tripleta("7", "9", "5", "10")

	tests := []struct {
		name       string
		results    settlement.Results
		wantStatus settlement.Status
		wantHits   int
		wantPrize  string
	}{
		{"nothing drawn", settlement.Results{}, settlement.Pending, 0, "0"},
		{"two of three", settlement.Results{"08:00 AM": "7", "09:00 AM": "9"}, settlement.Pending, 2, "0"},
		{"all three in different slots", settlement.Results{"08:00 AM": "7", "11:00 AM": "9", "02:00 PM": "5"}, settlement.Won, 3, "600"},
		{"repeated animal counts once", settlement.Results{"08:00 AM": "7", "09:00 AM": "7", "10:00 AM": "9"}, settlement.Pending, 2, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := settlement.SettleTripleta(tr, tt.results)
			if o.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, o.Status)
			}
			if len(o.Hits) != tt.wantHits {
				t.Errorf("expected %d hits, got %v", tt.wantHits, o.Hits)
			}
			if !o.Prize.Equal(dec(tt.wantPrize)) {
				t.Errorf("expected prize %s, got %s", tt.wantPrize, o.Prize)
			}
		})
	}
}

func TestSettleTripleta_HitsFollowChosenOrder(t *testing.T) {
	o := settlement.SettleTripleta(tripleta("7", "9", "5", "1"), settlement.Results{"a": "5", "b": "9", "c": "7"})
	want := []string{"7", "9", "5"}
	for i := range want {
		if o.Hits[i] != want[i] {
			t.Fatalf("expected hits %v, got %v", want, o.Hits)
		}
	}
}

func TestCalculator_TripletaLostWhenDayComplete(t *testing.T) {
	calc := settlement.NewCalculator([]string{"08:00 AM", "09:00 AM"})
	tr := tripleta("7", "9", "5", "10")

	partial := calc.Settle(nil, []models.Tripleta{tr}, settlement.Results{"08:00 AM": "7"})
	if partial.Tripletas[0].Status != settlement.Pending {
		t.Errorf("expected pending with slots outstanding, got %s", partial.Tripletas[0].Status)
	}

	full := calc.Settle(nil, []models.Tripleta{tr}, settlement.Results{"08:00 AM": "7", "09:00 AM": "9"})
	if full.Tripletas[0].Status != settlement.Lost {
		t.Errorf("expected lost once the day is complete, got %s", full.Tripletas[0].Status)
	}
	if full.Status() != settlement.Lost {
		t.Errorf("expected ticket lost, got %s", full.Status())
	}
}

func TestCalculator_CorrectedResultTurnsLostTripletaIntoWin(t *testing.T) {
	calc := settlement.NewCalculator([]string{"08:00 AM", "09:00 AM", "10:00 AM"})
	tr := tripleta("7", "9", "5", "10")

	before := calc.Settle(nil, []models.Tripleta{tr}, settlement.Results{"08:00 AM": "7", "09:00 AM": "9", "10:00 AM": "1"})
	if before.Tripletas[0].Status != settlement.Lost || !before.Total.IsZero() {
		t.Fatalf("expected lost with no prize, got %s %s", before.Tripletas[0].Status, before.Total)
	}

	after := calc.Settle(nil, []models.Tripleta{tr}, settlement.Results{"08:00 AM": "7", "09:00 AM": "9", "10:00 AM": "5"})
	if after.Tripletas[0].Status != settlement.Won {
		t.Errorf("expected won after the correction, got %s", after.Tripletas[0].Status)
	}
	if !after.Total.Equal(dec("600")) {
		t.Errorf("expected prize 600, got %s", after.Total)
	}
}

// Scenario: sale and settlement of a mixed ticket
func TestSettle_MixedTicket(t *testing.T) {
	wagers := []models.Wager{
		animal("09:00 AM", "40", "10"),
		special("09:00 AM", "ROJO", "20"),
	}
	results := settlement.Results{"09:00 AM": "40"}

	s := settlement.Settle(wagers, nil, results)
	if !s.Total.Equal(dec("700")) {
		t.Errorf("expected total 700, got %s", s.Total)
	}
	if s.Wagers[0].Status != settlement.Won || s.Wagers[1].Status != settlement.Lost {
		t.Errorf("unexpected outcomes %+v", s.Wagers)
	}
	if s.Status() != settlement.Won {
		t.Errorf("expected ticket status won, got %s", s.Status())
	}
}

// Scenario: excluded code on a special
func TestSettle_ExcludedResult(t *testing.T) {
	s := settlement.Settle([]models.Wager{special("10:00 AM", "PAR", "20")}, nil, settlement.Results{"10:00 AM": "0"})
	if !s.Total.IsZero() {
		t.Errorf("expected no prize, got %s", s.Total)
	}
}

// Scenario: tripleta across the day
func TestSettle_TripletaAcrossDay(t *testing.T) {
	s := settlement.Settle(nil, []models.Tripleta{tripleta("7", "9", "5", "10")},
		settlement.Results{"08:00 AM": "7", "11:00 AM": "9", "02:00 PM": "5"})
	if !s.Total.Equal(dec("600")) {
		t.Errorf("expected total 600, got %s", s.Total)
	}
}

func TestSettle_Idempotent(t *testing.T) {
	wagers := []models.Wager{animal("09:00 AM", "5", "3"), special("10:00 AM", "IMPAR", "4")}
	trips := []models.Tripleta{tripleta("5", "7", "9", "2")}
	results := settlement.Results{"09:00 AM": "5", "10:00 AM": "7"}

	first := settlement.Settle(wagers, trips, results)
	second := settlement.Settle(wagers, trips, results)
	if !first.Total.Equal(second.Total) {
		t.Errorf("expected identical totals, got %s and %s", first.Total, second.Total)
	}
	for i := range first.Wagers {
		if first.Wagers[i].Status != second.Wagers[i].Status {
			t.Errorf("wager %d status differs between runs", i)
		}
	}
}

func TestSettle_MonotonicInResults(t *testing.T) {
	wagers := []models.Wager{
		animal("08:00 AM", "7", "5"),
		animal("09:00 AM", "40", "1"),
		special("10:00 AM", "NEGRO", "8"),
	}
	trips := []models.Tripleta{tripleta("7", "40", "2", "3")}
	posts := []struct{ slot, code string }{
		{"08:00 AM", "7"},
		{"09:00 AM", "40"},
		{"10:00 AM", "2"},
		{"11:00 AM", "13"},
	}

	results := settlement.Results{}
	prev := decimal.Zero
	for _, p := range posts {
		results[p.slot] = p.code
		total := settlement.Settle(wagers, trips, results).Total
		if total.LessThan(prev) {
			t.Fatalf("prize decreased from %s to %s after posting %s", prev, total, p.slot)
		}
		prev = total
	}
	// 5*35 + 1*70 + 8*2 + 3*60
	if !prev.Equal(dec("441")) {
		t.Errorf("expected final total 441, got %s", prev)
	}
}

func TestSettlementStatus_PendingWhileUndecided(t *testing.T) {
	s := settlement.Settle([]models.Wager{animal("09:00 AM", "5", "1"), animal("10:00 AM", "5", "1")}, nil,
		settlement.Results{"09:00 AM": "6"})
	if s.Status() != settlement.Pending {
		t.Errorf("expected pending, got %s", s.Status())
	}
}
