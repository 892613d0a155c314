// Package domain models oceanographic point observations and the requests
// that fetch them.
//
// # Data Sources
//
// Observations come from three upstream providers, in fixed merge priority:
//
//	live    — the ArgoVis profile catalog (https://argovis.colorado.edu),
//	          in-situ temperature/salinity/pressure profiles from the Argo
//	          float network, 2002-present.
//	archive — two-year columnar partitions of historical Argo demo data
//	          (columns: year, ocean, platform_number, cycle_number,
//	          latitude, longitude, time, pres, temp, psal).
//	gridded — NOAA ERSST monthly sea-surface temperature grids, used only
//	          for time windows predating the Argo network (pre-2002).
//	          Surface temperature only; no salinity or pressure.
//
// When every real source fails or returns nothing, a fallback generator
// synthesizes regionally plausible records tagged [SourceFallback] so
// consumers can always tell synthetic data from observed data.
//
// # Unit Conventions
//
//	temperature  °C
//	salinity     PSU (practical salinity units)
//	pressure     dbar, numerically ≈ depth in meters
//	oxygen       µmol/kg
//
// Longitude is normalized to [-180, 180] at the adapter boundary; some
// providers report [0, 360). Latitude is always [-90, 90]. Timestamps are
// naive UTC.
//
// # Record Validity
//
// A record must carry at least one of temperature, salinity, or pressure to
// survive ingestion. Adapters drop records failing this (and records with
// missing coordinates) before returning; nothing downstream re-checks it.
//
// # Duplicate Detection
//
// Two records are the same observation when their coordinates, rounded to a
// configurable number of decimal places (default 3, roughly 100 m), and
// their timestamps match. On collision the record from the higher-priority
// source wins. See [CanonicalRecord.DedupKey].
package domain
