// Package forecast implements the multi-model forecasting engine. A request
// is normalized to the unit interval, fitted by a chain of candidate models
// (autoregressive, exponential smoothing, a recurrent window network and a
// linear-regression fallback), scored on the same normalized in-sample RMSE,
// and the winning forecast is denormalized together with its confidence
// band. Individual model failures are recovered inside the chain; the
// linear-regression fallback cannot fail on validated input, so a validated
// request always yields a usable result.
package forecast
