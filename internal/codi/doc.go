// Package codi implements the message protocol spoken with the instant-payment network:
// the envelope sum type, the canonical string both parties sign and verify, the RSA-PSS
// signer and verifier, the pre-signing sanitation of outbound payment requests, and the
// ordered validation pipeline that turns an inbound result notification into a result code.
//
// # Canonical string
//
// For datosMC, cadenaMC, folioCodi, peticionConsulta and resultado the canonical string is
// the payload's JSON text followed directly by the decimal epoch:
//
//	{"monto":150,"referenciaNumerica":"1234567",...}1700000000000
//
// A payload that is already a JSON string is used verbatim (without quotes).
//
// For cadenaInformacion (the webhook result) the canonical string is the payload's JSON text
// with every integral "monto" value written with a trailing ".0"; no epoch is appended.
//
// The JSON text preserves the key order of the payload exactly as received or constructed, and
// renders strings and numbers the way the network's serializer does (compact, no HTML escaping,
// shortest round-trip numbers).
//
// # Validation pipeline
//
// Evaluate checks, in order: top-level presence of cadenaInformacion and selloDigital, the
// network signature (-8), presence of the sixteen notification fields, then the ordered
// business checks. The first failing check decides the result code. Missing fields and an
// operator certificate mismatch are returned as errors, not result codes.
package codi
