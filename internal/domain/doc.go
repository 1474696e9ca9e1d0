// Package domain models epidemiological case/death observations and the
// canonical per-entity time series built from them.
//
// # Data Sources
//
// Three structurally different inputs are normalized into one model:
//
//	Line list (RKI):     one row per reported event bundle, keyed on state
//	                     (Bundesland) and county (Landkreis), with per-day
//	                     counts (AnzahlFall, AnzahlTodesfall).
//	Aggregate (ECDC):    one row per country per day with per-day counts.
//	Wide matrix (JHU):   one row per country/province, one column per day,
//	                     each cell a running total. Confirmed and deaths
//	                     live in two parallel files.
//	Snapshot archive:    one file per day (M-D-YYYY.csv). The column naming
//	                     and granularity changed on 2020-03-22.
//
// # Record Model
//
// Every reader emits [RawRecord] values. A record carries an open map of
// entity keys ([Dimension] → identifier) so one line-list row can feed both
// a state-level and a county-level series. A record holds either per-day
// counts (Incremental) or running totals (Cumulative), never both.
//
// # Aggregation
//
// [Aggregate] groups the records of one dimension by entity and date. Per-day
// counts are summed across strata (age group, sex) and accumulated into
// running totals. Running totals are taken as reported; several strata on
// the same date (provinces of one country) are summed into the entity total.
//
// Day offsets are measured from the first global date: the earliest date
// observed anywhere in the ingestion run ([FirstDate]). An entity whose first
// observation is that date starts at days_passed 0. A reader may declare an
// earlier day zero in [ReadResult].Earliest (a matrix header date whose cells
// did not parse), which then wins.
//
// [BuildDataset] aggregates per-day records and running-total records
// separately. An entity reported in both kinds (the snapshot archive changes
// schema mid-run) gets one series: the part that starts first is kept and the
// other continues its running totals from the last shared day on.
//
// # Discovery
//
// Readers also return the distinct identifiers they saw per dimension and
// parent/child links (state → counties, country → provinces) as a
// [Discovery]. These drive which entities are aggregated and how they are
// grouped downstream; the aggregator itself never consults the hierarchy.
package domain
