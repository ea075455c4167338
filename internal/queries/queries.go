// Package queries holds the SELECT statements that populate the star schema.
//
// Each statement is the body of an INSERT INTO <table> <query>; column order
// matches the target table DDL in internal/schema. The SQL sticks to forms
// that run unchanged on Redshift and DuckDB.
package queries

// SongplayTableInsert selects NextSong events joined to song metadata.
// Millisecond epochs are truncated to the second on both warehouses.
// Unmatched events keep NULL song and artist ids.
const SongplayTableInsert = `
SELECT
    md5(CAST(events.sessionid AS VARCHAR) || CAST(events.start_time AS VARCHAR)) AS playid,
    events.start_time,
    events.userid,
    events.level,
    songs.song_id,
    songs.artist_id,
    events.sessionid,
    events.location,
    events.useragent
FROM (
    SELECT TIMESTAMP 'epoch' + CAST(floor(ts / 1000.0) AS BIGINT) * INTERVAL '1 second' AS start_time, *
    FROM staging_events
    WHERE page = 'NextSong'
) events
LEFT JOIN staging_songs songs
    ON events.song = songs.title
    AND events.artist = songs.artist_name
    AND events.length = songs.duration`

// UserTableInsert selects the distinct listeners seen in NextSong events.
const UserTableInsert = `
SELECT DISTINCT userid, firstname, lastname, gender, level
FROM staging_events
WHERE page = 'NextSong'`

// SongTableInsert selects distinct songs from the song metadata.
const SongTableInsert = `
SELECT DISTINCT song_id, title, artist_id, year, duration
FROM staging_songs`

// ArtistTableInsert selects distinct artists from the song metadata.
const ArtistTableInsert = `
SELECT DISTINCT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM staging_songs`

// TimeTableInsert breaks every songplay timestamp into calendar units.
const TimeTableInsert = `
SELECT
    start_time,
    extract(hour FROM start_time),
    extract(day FROM start_time),
    extract(week FROM start_time),
    extract(month FROM start_time),
    extract(year FROM start_time),
    extract(dow FROM start_time)
FROM songplays`

// ForTable returns the insert query for a fact or dimension table.
func ForTable(table string) (string, bool) {
	q, ok := byTable[table]
	return q, ok
}

var byTable = map[string]string{
	"songplays": SongplayTableInsert,
	"users":     UserTableInsert,
	"songs":     SongTableInsert,
	"artists":   ArtistTableInsert,
	"time":      TimeTableInsert,
}
