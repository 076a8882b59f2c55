package bankprofile

// Shared OCR confusions: letters that extractors read where a digit was
// printed. Only applied digit-adjacent, see ApplyKnownErrorCorrections.
func commonOCRConfusions() map[rune]rune {
	return map[rune]rune{
		'O': '0',
		'o': '0',
		'l': '1',
		'I': '1',
		'S': '5',
		'B': '8',
		'Z': '2',
	}
}

// Category rules shared by every institution through the fallback profile.
var fallbackRules = []CategoryRule{
	rule(`payroll|direct dep|salary`, "Income", DirectionCredit),
	rule(`interest (paid|earned)`, "Interest Income", DirectionCredit),
	rule(`refund|reversal`, "Refunds", DirectionCredit),
	rule(`transfer (to|from)|zelle|venmo|paypal`, "Transfers", ""),
	rule(`atm|cash withdrawal`, "Cash", DirectionDebit),
	rule(`check\s*#?\s*\d+`, "Checks", DirectionDebit),
	rule(`grocery|supermarket|market|whole foods|trader joe`, "Groceries", DirectionDebit),
	rule(`restaurant|cafe|coffee|starbucks|mcdonald|chipotle|doordash|grubhub|uber\s*eats`, "Dining", DirectionDebit),
	rule(`amazon|walmart|target|costco|ebay`, "Shopping", DirectionDebit),
	rule(`netflix|spotify|hulu|disney|subscription`, "Subscriptions", DirectionDebit),
	rule(`electric|gas co|water|utility|comcast|verizon|at&t|t-mobile`, "Utilities", DirectionDebit),
	rule(`insurance|geico|allstate|state farm`, "Insurance", DirectionDebit),
	rule(`mortgage|rent`, "Housing", DirectionDebit),
	rule(`uber|lyft|shell|chevron|exxon|parking|toll`, "Transportation", DirectionDebit),
	rule(`pharmacy|cvs|walgreens|medical|doctor|dental`, "Healthcare", DirectionDebit),
	rule(`fee|service charge|overdraft|maintenance`, "Bank Fees", DirectionDebit),
	rule(`tax|irs`, "Taxes", DirectionDebit),
}

func defaultProfiles() []*Profile {
	return []*Profile{
		{
			InstitutionID: "chase",
			DisplayName:   "JPMorgan Chase",
			DateFormats:   []string{"01/02/2006", "01/02/06", "Jan 02, 2006"},
			HeaderMarkers: []string{"JPMorgan Chase", "Chase Bank", "chase.com"},
			FooterMarkers: []string{"Member FDIC", "JPMorgan Chase Bank, N.A."},
			PageBreakMarkers: []string{
				"continued on next page",
				"Page",
			},
			CategoryRules: []CategoryRule{
				rule(`chase credit crd|epay`, "Credit Card Payment", DirectionDebit),
				rule(`chase quickpay`, "Transfers", ""),
				rule(`orig co name`, "Direct Deposit", DirectionCredit),
			},
			KnownErrors: []KnownError{
				{From: "0RIG CO NAME", To: "ORIG CO NAME"},
				{From: "QUICKPAY W1TH ZELLE", To: "QUICKPAY WITH ZELLE"},
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: "bank-of-america",
			DisplayName:   "Bank of America",
			DateFormats:   []string{"01/02/06", "01/02/2006"},
			HeaderMarkers: []string{"Bank of America", "bankofamerica.com", "BofA"},
			FooterMarkers: []string{"Bank of America, N.A."},
			PageBreakMarkers: []string{
				"continued on the next page",
			},
			CategoryRules: []CategoryRule{
				rule(`bkofamerica atm`, "Cash", DirectionDebit),
				rule(`keep the change`, "Savings", DirectionDebit),
				rule(`bofa fin ctr`, "Bank Fees", DirectionDebit),
			},
			KnownErrors: []KnownError{
				{From: "BKOFAMER1CA", To: "BKOFAMERICA"},
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: "wells-fargo",
			DisplayName:   "Wells Fargo",
			DateFormats:   []string{"1/2", "01/02/2006"},
			HeaderMarkers: []string{"Wells Fargo", "wellsfargo.com"},
			FooterMarkers: []string{"Wells Fargo Bank, N.A."},
			CategoryRules: []CategoryRule{
				rule(`purchase authorized on`, "Card Purchase", DirectionDebit),
				rule(`recurring payment authorized`, "Subscriptions", DirectionDebit),
				rule(`online transfer`, "Transfers", ""),
			},
			KnownErrors: []KnownError{
				{From: "PURCHASE AUTH0RIZED", To: "PURCHASE AUTHORIZED"},
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: "citi",
			DisplayName:   "Citibank",
			DateFormats:   []string{"01/02", "01/02/2006"},
			HeaderMarkers: []string{"Citibank", "citi.com", "Citigroup"},
			FooterMarkers: []string{"Citibank, N.A."},
			CategoryRules: []CategoryRule{
				rule(`citi autopay`, "Credit Card Payment", DirectionDebit),
				rule(`thankyou points`, "Rewards", DirectionCredit),
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: "capital-one",
			DisplayName:   "Capital One",
			DateFormats:   []string{"Jan 2, 2006", "01/02/2006"},
			HeaderMarkers: []string{"Capital One", "capitalone.com"},
			FooterMarkers: []string{"Capital One, N.A."},
			CategoryRules: []CategoryRule{
				rule(`capital one mobile pmt`, "Credit Card Payment", DirectionDebit),
				rule(`360 performance savings`, "Savings", ""),
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: FallbackInstitution,
			DisplayName:   "Other Institution",
			DateFormats: []string{
				"2006-01-02",
				"01/02/2006",
				"01/02/06",
				"Jan 2, 2006",
				"2 Jan 2006",
			},
			HeaderMarkers: nil, // never matched during detection
			CategoryRules: fallbackRules,
			OCRConfusions: commonOCRConfusions(),
		},
	}
}

// Regional profiles are reachable from detection's secondary pass (which
// reports the fallback id) and from categorization when addressed directly.
func regionalProfiles() []*Profile {
	return []*Profile{
		{
			InstitutionID: "regional-credit-union",
			DisplayName:   "Credit Union (regional)",
			DateFormats:   []string{"01/02/2006", "2006-01-02"},
			HeaderMarkers: []string{"Credit Union", "Federal Credit Union", "NCUA"},
			CategoryRules: []CategoryRule{
				rule(`share draft`, "Checks", DirectionDebit),
				rule(`dividend`, "Interest Income", DirectionCredit),
			},
			OCRConfusions: commonOCRConfusions(),
		},
		{
			InstitutionID: "regional-community-bank",
			DisplayName:   "Community Bank (regional)",
			DateFormats:   []string{"01/02/2006"},
			HeaderMarkers: []string{"Community Bank", "Savings Bank", "Trust Company"},
			CategoryRules: []CategoryRule{
				rule(`telephone banking`, "Transfers", ""),
			},
			OCRConfusions: commonOCRConfusions(),
		},
	}
}
