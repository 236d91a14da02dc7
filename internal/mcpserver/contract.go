package mcpserver

// SnapshotFormatContract describes the snapshot exchange format that the
// tools in this server read.
const SnapshotFormatContract = `# classdeck Snapshot Format

The main process writes today's schedule to a single file in the shared
container (default name ` + "`today.json`" + `). The file is replaced atomically;
readers never see a partial write. Consumers only read it.

## Versioned document (default)

` + "```" + `json
{
  "version": 1,
  "date": "2026-10-19",
  "generatedAt": "2026-10-19T06:30:15Z",
  "timingTable": "<sha256 of the period timing table>",
  "entries": [
    {
      "name": "Compilers",
      "teacher": "Prof. Lin",
      "location": "B-204",
      "periodIndex": 3,
      "periodSpan": 2,
      "colorTag": "#FF8800"
    }
  ]
}
` + "```" + `

## Legacy array

Older writers emit only the ` + "`entries`" + ` array. Both forms are accepted.

## Rules

1. Entries are ordered by period, then by insertion.
2. A class occupies [start, start + span × 45 minutes) where start comes from the
   period timing table.
3. An empty array is a day without classes. A missing or unreadable file means
   no data is available.
4. Periods not present in the timing table are unscheduled and never current.
5. The file modification time is the generation time.
`
