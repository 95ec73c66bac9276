package classify

import (
	"strings"

	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/textutil"
)

var paymentTerms = []string{
	"plata", "transfer", "virament", "comision", "retragere", "depunere",
	"schimb valutar", "rata", "dobanda",
}

var domainKeywords = map[string]string{
	"comision":  "Comisioane",
	"dobanda":   "Comisioane",
	"retragere": "Numerar",
	"atm":       "Numerar",
	"transfer":  "Transferuri",
	"virament":  "Transferuri",
	"rata":      "Credite",
	"salariu":   "Venituri",
}

// heuristicClassify is the last-resort decision procedure over simple
// lexical features. It never short-circuits on a floor; whatever it decides
// is the answer.
func heuristicClassify(txn *model.Transaction) model.ClassificationResult {
	lower := strings.ToLower(textutil.FoldDiacritics(txn.Description))
	words := strings.Fields(lower)

	// Domain keyword wins outright.
	for kw, category := range domainKeywords {
		if strings.Contains(lower, kw) {
			return model.ClassificationResult{
				Merchant:   merchantDisplayName(txn.Description),
				Category:   category,
				Method:     "heuristic",
				Confidence: 0.55,
			}
		}
	}

	// A payment-term phrase without a clearer signal.
	for _, term := range paymentTerms {
		if strings.Contains(lower, term) {
			return model.ClassificationResult{
				Merchant:   merchantDisplayName(txn.Description),
				Category:   "Transferuri",
				Method:     "heuristic",
				Confidence: 0.45,
			}
		}
	}

	// Short all-caps descriptions look like POS merchant stubs.
	if len(words) <= 3 && txn.Description == strings.ToUpper(txn.Description) && txn.Type == model.TypeExpense {
		return model.ClassificationResult{
			Merchant:   merchantDisplayName(txn.Description),
			Category:   "Cumparaturi",
			Method:     "heuristic",
			Confidence: 0.4,
		}
	}

	return model.ClassificationResult{
		Merchant:   merchantDisplayName(txn.Description),
		Category:   Uncategorized,
		Method:     "heuristic",
		Confidence: 0.2,
	}
}
