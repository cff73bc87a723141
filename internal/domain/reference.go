package domain

// Region is a geographic area with its own Met Office dataset.
type Region struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	DatasetSlug string `json:"dataset_slug"`
	Description string `json:"description"`
}

// Parameter is a measured climate variable (temperature, rainfall, ...).
type Parameter struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Units       string `json:"units"`
	Description string `json:"description"`
}

// SeedRegions is the reference set of regions published by the Met Office.
var SeedRegions = []Region{
	{Code: "UK", Name: "United Kingdom", DatasetSlug: "UK"},
	{Code: "ENGLAND", Name: "England", DatasetSlug: "England"},
	{Code: "WALES", Name: "Wales", DatasetSlug: "Wales"},
	{Code: "SCOTLAND", Name: "Scotland", DatasetSlug: "Scotland"},
	{Code: "NORTHERN_IRELAND", Name: "Northern Ireland", DatasetSlug: "Northern_Ireland"},
	{Code: "ENGLAND_WALES", Name: "England & Wales", DatasetSlug: "England_and_Wales"},
	{Code: "ENGLAND_N", Name: "England N", DatasetSlug: "England_N"},
	{Code: "ENGLAND_S", Name: "England S", DatasetSlug: "England_S"},
	{Code: "SCOTLAND_N", Name: "Scotland N", DatasetSlug: "Scotland_N"},
	{Code: "SCOTLAND_E", Name: "Scotland E", DatasetSlug: "Scotland_E"},
	{Code: "SCOTLAND_W", Name: "Scotland W", DatasetSlug: "Scotland_W"},
	{Code: "ENGLAND_E_NE", Name: "England E & NE", DatasetSlug: "England_E_and_NE"},
	{Code: "ENGLAND_NW_WALES_N", Name: "England NW / Wales N", DatasetSlug: "England_NW_and_N_Wales"},
	{Code: "MIDLANDS", Name: "Midlands", DatasetSlug: "Midlands"},
	{Code: "EAST_ANGLIA", Name: "East Anglia", DatasetSlug: "East_Anglia"},
	{Code: "ENGLAND_SW_WALES_S", Name: "England SW / Wales S", DatasetSlug: "England_SW_and_S_Wales"},
	{Code: "ENGLAND_SE_CENTRAL_S", Name: "England SE / Central S", DatasetSlug: "England_SE_and_Central_S"},
}

// SeedParameters is the reference set of climate variables.
var SeedParameters = []Parameter{
	{
		Code:        "Tmax",
		Name:        "Mean daily maximum temperature",
		Units:       "°C",
		Description: "Monthly, seasonal and annual mean of daily maximum air temperature.",
	},
	{
		Code:        "Tmin",
		Name:        "Mean daily minimum temperature",
		Units:       "°C",
		Description: "Monthly, seasonal and annual mean of daily minimum air temperature.",
	},
	{
		Code:        "Tmean",
		Name:        "Mean temperature",
		Units:       "°C",
		Description: "Monthly, seasonal and annual mean air temperature.",
	},
	{
		Code:        "Rainfall",
		Name:        "Rainfall",
		Units:       "mm",
		Description: "Monthly, seasonal and annual total rainfall.",
	},
	{
		Code:        "Raindays1mm",
		Name:        "Rain days (≥1mm)",
		Units:       "days",
		Description: "Number of days each month/season/annum with ≥1mm of rainfall.",
	},
	{
		Code:        "Sunshine",
		Name:        "Sunshine duration",
		Units:       "hours",
		Description: "Monthly, seasonal and annual total duration of bright sunshine.",
	},
	{
		Code:        "AirFrost",
		Name:        "Air frost days",
		Units:       "days",
		Description: "Number of days with air frost.",
	},
}
