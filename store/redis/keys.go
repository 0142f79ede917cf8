package redis

import (
	"github.com/google/uuid"

	"github.com/BetoIII/docledger/id"
)

// Key layout. Everything lives under the "docledger:" prefix so a shared
// Redis instance can be flushed selectively.
//
//	docledger:run:<run_id>        hash  {data, kind, state, started_at}
//	docledger:runs                set   all run IDs
//	docledger:agg:<doc_id>        hash  {registration, firm, coop, updated_at}
//	docledger:agg:<doc_id>:ext    list  external grants (JSON)
//	docledger:agg:<doc_id>:lic    list  license offers (JSON)
//	docledger:aggs                set   all document IDs with an aggregate
//	docledger:pending:<actor_id>  string pending document (JSON)
//	docledger:pendings            set   all temp actor IDs with a stash
const keyPrefix = "docledger:"

const (
	runIDsKey  = keyPrefix + "runs"
	aggIDsKey  = keyPrefix + "aggs"
	pendingSet = keyPrefix + "pendings"
)

func runKey(runID id.RunID) string { return keyPrefix + "run:" + runID.String() }

func aggKey(docID id.DocumentID) string { return keyPrefix + "agg:" + docID.String() }

func aggExternalKey(docID id.DocumentID) string { return aggKey(docID) + ":ext" }

func aggLicenseKey(docID id.DocumentID) string { return aggKey(docID) + ":lic" }

func pendingKey(tempActorID uuid.UUID) string {
	return keyPrefix + "pending:" + tempActorID.String()
}
