// Package domain models endangered-species sighting data and the climate
// projections used to forecast future populations.
//
// # Data Sources
//
// Two comma-separated files are read at startup, both with a header row:
//
//	animal_data.csv
//	  species,year,count,latitude,longitude,timeline
//	  Condor,2020,15,34.0,-118.0,Historical
//
//	spatial_climate_projections_ssp370.csv
//	  year,species,latitude,longitude,temperature_C,precipitation_mm,ndvi,fire_occurred,fire_size_km2,fire_probability
//	  2025,Condor,34.0,-118.0,18.2,410.5,0.41,FALSE,0,0.12
//
// Neither file quotes fields, so rows are split on every comma. Rows with the
// wrong column count or an unparseable field are dropped and counted rather
// than failing the load.
//
// # Projection Conventions
//
// Sightings cover 2010 through 2024. Climate projections follow the SSP3-7.0
// scenario from 2025 through 2050; each record carries its own target year and
// several locations may share a year. ProjectionStartYear is the boundary
// between the two ranges.
//
// Confidence on a prediction is 1 - fire_probability of its source record. It
// is a proxy for habitat stability, not a statistical interval.
//
// Model outputs are kept raw on PredictionResult. Aggregated counts are
// rounded half away from zero and clamped at zero, since the regression can
// produce fractional or negative populations.
package domain
