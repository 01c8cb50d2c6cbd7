// Package codec converts between in-memory records and their on-disk
// documents. It defines a common interface so stores stay independent of a
// concrete document format, plus the JSON implementation used by default.
//
// The package focuses on:
//   - A stable, human-readable document format for records
//   - Keeping record bookkeeping (key, change history) inside the document
//     itself under reserved keys
//   - Rebuilding entities field by field through the model abstraction
//
// Document Format:
//
//	Every record is one JSON object. The entity's fields appear as
//	top-level entries; two reserved keys carry bookkeeping:
//
//	  {
//	    "__key__": "dennis",
//	    "__changes__": [
//	      {
//	        "key": "dennis",
//	        "prop_name": "name",
//	        "prev_val": "denis",
//	        "new_val": "DENIS",
//	        "date": "2025-03-14T09:26:53.589793Z"
//	      }
//	    ],
//	    "age": 32,
//	    "name": "DENIS"
//	  }
//
//	The history array holds only applied changes, oldest first. A document
//	without a history entry is valid and decodes to an empty change log.
//
// Key Components:
//
//   - IRecordCodec: Core interface all codec implementations must satisfy
//     (Encode and Decode).
//
//   - jsonCodecImpl: The JSON implementation. Two-space indented output for
//     readable diffs; tolerant decoding (missing history, stale fields from
//     older schemas); strict schema checks (missing entity fields and type
//     mismatches fail with RetCSchemaMismatch).
//
//   - CheckFieldNames: Construction-time validation of an entity schema
//     against the reserved document keys.
//
// Thread Safety:
//
//	Codec implementations are stateless apart from the entity factory and
//	safe for concurrent use.
//
// Usage:
//
//	codec := codec.NewJSONCodec(NewUser)
//	data, err := codec.Encode("user-1", user, log)
//	// ... write data ...
//	key, user, log, err := codec.Decode(data)
package codec
