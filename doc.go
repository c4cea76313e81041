// Package playstate implements a per-user playback-state store: small records
// (played, resume position, favorite, rating) keyed by a user id and an item key,
// persisted durably and served through a read-through cache.
//
// Components:
//   - Backend: transactional byte store (SQLite by default, see backend/sqlite).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Write gate: a single-slot semaphore; at most one write transaction is open
//     at any time. The cache is updated under the gate after commit, so the cache
//     and the backend always agree once Save returns.
//   - Cache tier: an unbounded in-process map by default. With a Provider set,
//     entries live in a byte cache (Ristretto, BigCache, Redis) guarded by
//     per-key generations.
//
// Lifecycle:
//
//	st, _ := playstate.New[Rec](playstate.Options[Rec]{Path: "userdata.db", Codec: codec.JSON[Rec]{}})
//	_ = st.Init(ctx)
//	defer st.Shutdown(ctx)
//	_ = st.Save(ctx, userID, "movie-42", rec)
//	rec, _ = st.Get(ctx, userID, "movie-42") // never "not found": misses yield a default record
package playstate
