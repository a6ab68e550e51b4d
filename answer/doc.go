// Package answer turns retrieved chunks into grounded answers.
//
// The Generator type drives the answering path: it retrieves relevant
// chunks, assembles them into a bounded context block with source labels,
// and asks the completion model to answer strictly from that context.
// Results carry a status instead of raising errors, so an empty knowledge
// base or a failed retrieval still yields a renderable response.
package answer
