package codi

import "strconv"

// ResultCode is the outcome of validating a result notification, returned to the network
// as {"resultado": code}. 0 accepts the notification; each negative code is produced by
// exactly one check.
type ResultCode int

const (
	ResultAccepted ResultCode = 0

	// -1 and -4 are reserved by the network and never produced

	ResultInvalidVerificationDigit  ResultCode = -2
	ResultInvalidPhone              ResultCode = -3
	ResultInvalidNetworkCertificate ResultCode = -5
	ResultInvalidResultCode         ResultCode = -6
	ResultInvalidMessageID          ResultCode = -7
	ResultInvalidSignature          ResultCode = -8
	ResultEmptyConcept              ResultCode = -9
	ResultInvalidTimestamps         ResultCode = -10
	ResultUnknownInstitution        ResultCode = -11
	ResultInvalidAccountType        ResultCode = -12
)

var resultCodeNames = map[ResultCode]string{
	ResultAccepted:                  "accepted",
	ResultInvalidVerificationDigit:  "invalid verification digit",
	ResultInvalidPhone:              "invalid phone number",
	ResultInvalidNetworkCertificate: "network certificate mismatch",
	ResultInvalidResultCode:         "unknown result code",
	ResultInvalidMessageID:          "invalid message id",
	ResultInvalidSignature:          "invalid signature",
	ResultEmptyConcept:              "empty concept",
	ResultInvalidTimestamps:         "timestamps out of order",
	ResultUnknownInstitution:        "unknown institution",
	ResultInvalidAccountType:        "invalid account type",
}

func (c ResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return "result " + strconv.Itoa(int(c))
}

// Accepted reports whether the notification passed every check.
func (c ResultCode) Accepted() bool {
	return c == ResultAccepted
}
