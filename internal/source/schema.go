package source

// schema describes one known table layout of the notification log.
type schema struct {
	Name string
	// Since selects (id, payload, app key) with id > ? ordered by id.
	Since string
	// Max selects the largest id, NULL when the table is empty.
	Max string
}

var (
	schemaCurrent = schema{
		Name: "current",
		Since: `SELECT rec.Z_PK, rec.ZDATA, app.ZBUNDLEID
FROM ZNOTIFICATIONENTRY rec
JOIN ZNOTIFICATIONAPPENTRY app ON rec.ZAPP = app.Z_PK
WHERE rec.Z_PK > ?
ORDER BY rec.Z_PK`,
		Max: `SELECT MAX(Z_PK) FROM ZNOTIFICATIONENTRY`,
	}
	schemaLegacy = schema{
		Name: "legacy",
		Since: `SELECT rec.rec_id, rec.data, app.identifier
FROM record rec
JOIN app ON rec.app_id = app.app_id
WHERE rec.rec_id > ?
ORDER BY rec.rec_id`,
		Max: `SELECT MAX(rec_id) FROM record`,
	}

	// Probe order.
	schemas = []schema{schemaCurrent, schemaLegacy}
)
