package catalog

import "github.com/iwvelando/steel-estimate/pkg/constants"

// DefaultRows is the built-in supplier-rule table used when the active table
// has no usable deck rule.
func DefaultRows() []Row {
	return []Row{
		{
			ColumnSupplier:              constants.SupplierTrojan,
			ColumnDeck:                  "TRUE",
			ColumnDepth:                 "1.5, 3",
			ColumnJoists:                "FALSE",
			ColumnAmericanSteelRequired: "TRUE",
			ColumnAmericanManufacturing: "TRUE",
			ColumnSDIManufacturing:      "FALSE",
			ColumnPriority:              "1",
			ColumnDeckLocation:          "TX",
			"B DECK":                    "TRUE",
			"DOVETAIL":                  "FALSE",
		},
		{
			ColumnSupplier:              constants.SupplierCSC,
			ColumnDeck:                  "TRUE",
			ColumnDepth:                 "0.6, 1, 1.5, 2, 3",
			ColumnJoists:                "TRUE",
			ColumnAmericanSteelRequired: "TRUE",
			ColumnAmericanManufacturing: "TRUE",
			ColumnSDIManufacturing:      "TRUE",
			ColumnPriority:              "2",
			ColumnDeckLocation:          "TX",
			ColumnJoistLocation:         "TX",
			"B DECK":                    "TRUE",
			"DOVETAIL":                  "FALSE",
		},
		{
			ColumnSupplier:              constants.SupplierCanam,
			ColumnDeck:                  "TRUE",
			ColumnDepth:                 "1.5, 2, 3",
			ColumnJoists:                "TRUE",
			ColumnAmericanSteelRequired: "FALSE",
			ColumnAmericanManufacturing: "TRUE",
			ColumnSDIManufacturing:      "TRUE",
			ColumnPriority:              "3",
			ColumnDeckLocation:          "MO",
			ColumnJoistLocation:         "MO",
			"B DECK":                    "TRUE",
			"DOVETAIL":                  "TRUE",
		},
		{
			ColumnSupplier:              constants.SupplierCordeck,
			ColumnDeck:                  "TRUE",
			ColumnDepth:                 "1.5, 2, 3",
			ColumnJoists:                "FALSE",
			ColumnAmericanSteelRequired: "TRUE",
			ColumnAmericanManufacturing: "TRUE",
			ColumnSDIManufacturing:      "TRUE",
			ColumnPriority:              "4",
			ColumnDeckLocation:          "WI",
			"B DECK":                    "TRUE",
		},
		{
			ColumnSupplier:              constants.SupplierVerco,
			ColumnDeck:                  "TRUE",
			ColumnDepth:                 "1.5, 3",
			ColumnJoists:                "FALSE",
			ColumnAmericanSteelRequired: "TRUE",
			ColumnAmericanManufacturing: "TRUE",
			ColumnSDIManufacturing:      "TRUE",
			ColumnPriority:              "4",
			ColumnDeckLocation:          "CA",
			"B DECK":                    "TRUE",
			"DOVETAIL":                  "FALSE",
		},
	}
}
