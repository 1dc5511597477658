package handlers

import "ercot-forecast/internal/api/models"

var (
	dateFromParam = models.ParameterInfo{Name: "date_from", Type: "string", Description: "Start date (YYYY-MM-DD)", Required: true}
	dateToParam   = models.ParameterInfo{Name: "date_to", Type: "string", Description: "End date (YYYY-MM-DD), defaults to date_from"}
	endpointParam = models.ParameterInfo{Name: "endpoint_name", Type: "string", Description: "Endpoint name from list_available_endpoints", Required: true}
	tableParam    = models.ParameterInfo{Name: "dataframe_json", Type: "object", Description: "Table as records, {columns, data} or a JSON string of either", Required: true}
)

var fetchTool = models.ToolInfo{
	Name:        "fetch_ercot_data",
	Description: "Fetch data from an ERCOT public API endpoint and normalize it, adding a DATETIME column when the timestamp layout is recognized.",
	Parameters: []models.ParameterInfo{
		endpointParam,
		dateFromParam,
		dateToParam,
		{Name: "settlement_point", Type: "string", Description: "Settlement point filter (e.g. HB_NORTH)"},
		{Name: "resource_type", Type: "string", Description: "Resource type filter for SCED endpoints"},
		{Name: "size", Type: "integer", Description: "Records per page", Default: 100000},
		{Name: "params", Type: "object", Description: "Additional query parameters; ones the endpoint does not accept are dropped"},
	},
}

var listEndpointsTool = models.ToolInfo{
	Name:        "list_available_endpoints",
	Description: "List ERCOT endpoints, optionally by category: prices, forecasts, actuals, market_data, other.",
	Parameters: []models.ParameterInfo{
		{Name: "category", Type: "string", Description: "Endpoint category", Default: "all"},
	},
}

var normalizeTool = models.ToolInfo{
	Name:        "normalize_ercot_dataframe",
	Description: "Normalize column names and derive DATETIME for a table fetched elsewhere.",
	Parameters:  []models.ParameterInfo{tableParam},
}

var endpointInfoTool = models.ToolInfo{
	Name:        "get_endpoint_info",
	Description: "Describe one endpoint: URL, date key, category and accepted parameters.",
	Parameters:  []models.ParameterInfo{endpointParam},
}

var vintageTool = models.ToolInfo{
	Name:        "get_vintage_forecast",
	Description: "Fetch a forecast report keeping, per hour, the latest forecast published by 07:00 the day before date_to.",
	Parameters: []models.ParameterInfo{
		endpointParam,
		dateFromParam,
		dateToParam,
		{Name: "settlement_point", Type: "string", Description: "Settlement point filter"},
	},
}

var netLoadTool = models.ToolInfo{
	Name:        "get_net_load_forecast",
	Description: "Hourly net load forecast: median load forecast minus solar and wind forecasts.",
	Parameters: []models.ParameterInfo{
		{Name: "date_from", Type: "string", Description: "Start date (YYYY-MM-DD), defaults to tomorrow"},
		dateToParam,
	},
}

var splitsTool = models.ToolInfo{
	Name:        "create_rolling_splits",
	Description: "Split a table into walk-forward train/test folds by calendar day.",
	Parameters: []models.ParameterInfo{
		tableParam,
		{Name: "initial_training_days", Type: "integer", Description: "Days used only for training before the first test day", Default: 15},
		{Name: "expanding_window", Type: "boolean", Description: "Train on all earlier days instead of a fixed window", Default: true},
	},
}

var dayAheadTool = models.ToolInfo{
	Name:        "day_ahead_price_forecast",
	Description: "Forecast hourly day-ahead system lambda from net load with a polynomial regression trained on the preceding days.",
	Parameters: []models.ParameterInfo{
		{Name: "forecast_date", Type: "string", Description: "Target date (YYYY-MM-DD), defaults to tomorrow"},
		{Name: "training_days", Type: "integer", Description: "Days of history to train on", Default: 15},
		{Name: "polynomial_degree", Type: "integer", Description: "Degree of the net load polynomial", Default: 3},
	},
}

var cvTool = models.ToolInfo{
	Name:        "rolling_forecast_cross_validation",
	Description: "Walk-forward cross-validation of the day-ahead price model over a date range.",
	Parameters: []models.ParameterInfo{
		{Name: "start_date", Type: "string", Description: "First day (YYYY-MM-DD), defaults to 30 days ago"},
		{Name: "end_date", Type: "string", Description: "Last day (YYYY-MM-DD), defaults to yesterday"},
		{Name: "initial_training_days", Type: "integer", Description: "Days used only for training", Default: 15},
		{Name: "polynomial_degree", Type: "integer", Description: "Degree of the net load polynomial", Default: 3},
		{Name: "expanding_window", Type: "boolean", Description: "Train on all earlier days instead of a fixed window", Default: true},
	},
}
