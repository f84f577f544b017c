package result

import "strconv"

// Category groups kinds by the hundreds digit of the status code
type Category int

const (
	// CategoryOther status codes outside 100-599
	CategoryOther Category = iota
	CategoryInformational
	CategorySuccess
	CategoryRedirection
	CategoryClientError
	CategoryServerError
)

var categoryNames = [...]string{"Other", "Informational", "Success", "Redirection", "ClientError", "ServerError"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(" + strconv.Itoa(int(c)) + ")"
	}
	return categoryNames[c]
}

// Class returns "1xx" to "5xx", empty for CategoryOther
func (c Category) Class() string {
	if c <= CategoryOther || c > CategoryServerError {
		return ""
	}
	return strconv.Itoa(int(c)) + "xx"
}

// CategoryOf returns the category of a status code
func CategoryOf(code int) Category {
	if code < 100 || code > 599 {
		return CategoryOther
	}
	return Category(code / 100)
}

// Kind is an exact status variant, or the Other fallback of a category
type Kind int

// Every kind has its own pool of idle results.
const (
	KindOther Kind = iota

	KindInformationalOther
	KindContinue
	KindSwitchingProtocols
	KindProcessing

	KindSuccessOther
	KindOK
	KindCreated
	KindAccepted
	KindNonAuthoritativeInformation
	KindNoContent
	KindResetContent
	KindPartialContent

	KindRedirectionOther
	KindMultipleChoices
	KindMovedPermanently
	KindFound
	KindSeeOther
	KindNotModified
	KindUseProxy
	KindUnused
	KindTemporaryRedirect
	KindPermanentRedirect

	KindClientErrorOther
	KindBadRequest
	KindUnauthorized
	KindPaymentRequired
	KindForbidden
	KindNotFound
	KindMethodNotAllowed
	KindNotAcceptable
	KindProxyAuthenticationRequired
	KindRequestTimeout
	KindConflict
	KindGone
	KindLengthRequired
	KindPreconditionFailed
	KindRequestEntityTooLarge
	KindRequestURITooLong
	KindUnsupportedMediaType
	KindRequestedRangeNotSatisfiable
	KindExpectationFailed
	KindImATeapot
	KindEnhanceYourCalm
	KindUnprocessableEntity
	KindLocked
	KindFailedDependency
	KindTooEarly
	KindUpgradeRequired
	KindPreconditionRequired
	KindTooManyRequests
	KindRequestHeaderFieldsTooLarge
	KindNoResponse
	KindRetryWith
	KindBlockedByWindowsParentalControls
	KindUnavailableForLegalReasons
	KindClientClosedRequest

	KindServerErrorOther
	KindInternalServerError
	KindNotImplemented
	KindBadGateway
	KindServiceUnavailable
	KindGatewayTimeout
	KindHTTPVersionNotSupported
	KindVariantAlsoNegotiates
	KindInsufficientStorage
	KindLoopDetected
	KindBandwidthLimitExceeded
	KindNotExtended
	KindNetworkAuthenticationRequired
	KindNetworkReadTimeoutError
	KindNetworkConnectTimeoutError

	kindCount
)

type kindInfo struct {
	name     string
	code     int
	reason   string
	category Category
	payload  bool
}

var kinds = [kindCount]kindInfo{
	KindOther: {"Other", 0, "", CategoryOther, false},

	KindInformationalOther: {"InformationalOther", 0, "", CategoryInformational, false},
	KindContinue:           {"Continue", 100, "Continue", CategoryInformational, false},
	KindSwitchingProtocols: {"SwitchingProtocols", 101, "Switching Protocols", CategoryInformational, false},
	KindProcessing:         {"Processing", 102, "Processing", CategoryInformational, false},

	KindSuccessOther:                {"SuccessOther", 0, "", CategorySuccess, false},
	KindOK:                          {"OK", 200, "OK", CategorySuccess, true},
	KindCreated:                     {"Created", 201, "Created", CategorySuccess, true},
	KindAccepted:                    {"Accepted", 202, "Accepted", CategorySuccess, false},
	KindNonAuthoritativeInformation: {"NonAuthoritativeInformation", 203, "Non-Authoritative Information", CategorySuccess, true},
	KindNoContent:                   {"NoContent", 204, "No Content", CategorySuccess, false},
	KindResetContent:                {"ResetContent", 205, "Reset Content", CategorySuccess, false},
	KindPartialContent:              {"PartialContent", 206, "Partial Content", CategorySuccess, false},

	KindRedirectionOther:  {"RedirectionOther", 0, "", CategoryRedirection, false},
	KindMultipleChoices:   {"MultipleChoices", 300, "Multiple Choices", CategoryRedirection, false},
	KindMovedPermanently:  {"MovedPermanently", 301, "Moved Permanently", CategoryRedirection, false},
	KindFound:             {"Found", 302, "Found", CategoryRedirection, false},
	KindSeeOther:          {"SeeOther", 303, "See Other", CategoryRedirection, false},
	KindNotModified:       {"NotModified", 304, "Not Modified", CategoryRedirection, false},
	KindUseProxy:          {"UseProxy", 305, "Use Proxy", CategoryRedirection, false},
	KindUnused:            {"Unused", 306, "Unused", CategoryRedirection, false},
	KindTemporaryRedirect: {"TemporaryRedirect", 307, "Temporary Redirect", CategoryRedirection, false},
	KindPermanentRedirect: {"PermanentRedirect", 308, "Permanent Redirect", CategoryRedirection, false},

	KindClientErrorOther:                 {"ClientErrorOther", 0, "", CategoryClientError, false},
	KindBadRequest:                       {"BadRequest", 400, "Bad Request", CategoryClientError, false},
	KindUnauthorized:                     {"Unauthorized", 401, "Unauthorized", CategoryClientError, false},
	KindPaymentRequired:                  {"PaymentRequired", 402, "Payment Required", CategoryClientError, false},
	KindForbidden:                        {"Forbidden", 403, "Forbidden", CategoryClientError, false},
	KindNotFound:                         {"NotFound", 404, "Not Found", CategoryClientError, false},
	KindMethodNotAllowed:                 {"MethodNotAllowed", 405, "Method Not Allowed", CategoryClientError, false},
	KindNotAcceptable:                    {"NotAcceptable", 406, "Not Acceptable", CategoryClientError, false},
	KindProxyAuthenticationRequired:      {"ProxyAuthenticationRequired", 407, "Proxy Authentication Required", CategoryClientError, false},
	KindRequestTimeout:                   {"RequestTimeout", 408, "Request Timeout", CategoryClientError, false},
	KindConflict:                         {"Conflict", 409, "Conflict", CategoryClientError, false},
	KindGone:                             {"Gone", 410, "Gone", CategoryClientError, false},
	KindLengthRequired:                   {"LengthRequired", 411, "Length Required", CategoryClientError, false},
	KindPreconditionFailed:               {"PreconditionFailed", 412, "Precondition Failed", CategoryClientError, false},
	KindRequestEntityTooLarge:            {"RequestEntityTooLarge", 413, "Request Entity Too Large", CategoryClientError, false},
	KindRequestURITooLong:                {"RequestURITooLong", 414, "Request-URI Too Long", CategoryClientError, false},
	KindUnsupportedMediaType:             {"UnsupportedMediaType", 415, "Unsupported Media Type", CategoryClientError, false},
	KindRequestedRangeNotSatisfiable:     {"RequestedRangeNotSatisfiable", 416, "Requested Range Not Satisfiable", CategoryClientError, false},
	KindExpectationFailed:                {"ExpectationFailed", 417, "Expectation Failed", CategoryClientError, false},
	KindImATeapot:                        {"ImATeapot", 418, "I'm a teapot", CategoryClientError, false},
	KindEnhanceYourCalm:                  {"EnhanceYourCalm", 420, "Enhance Your Calm", CategoryClientError, false},
	KindUnprocessableEntity:              {"UnprocessableEntity", 422, "Unprocessable Entity", CategoryClientError, false},
	KindLocked:                           {"Locked", 423, "Locked", CategoryClientError, false},
	KindFailedDependency:                 {"FailedDependency", 424, "Failed Dependency", CategoryClientError, false},
	KindTooEarly:                         {"TooEarly", 425, "Too Early", CategoryClientError, false},
	KindUpgradeRequired:                  {"UpgradeRequired", 426, "Upgrade Required", CategoryClientError, false},
	KindPreconditionRequired:             {"PreconditionRequired", 428, "Precondition Required", CategoryClientError, false},
	KindTooManyRequests:                  {"TooManyRequests", 429, "Too Many Requests", CategoryClientError, false},
	KindRequestHeaderFieldsTooLarge:      {"RequestHeaderFieldsTooLarge", 431, "Request Header Fields Too Large", CategoryClientError, false},
	KindNoResponse:                       {"NoResponse", 444, "No Response", CategoryClientError, false},
	KindRetryWith:                        {"RetryWith", 449, "Retry With", CategoryClientError, false},
	KindBlockedByWindowsParentalControls: {"BlockedByWindowsParentalControls", 450, "Blocked by Windows Parental Controls", CategoryClientError, false},
	KindUnavailableForLegalReasons:       {"UnavailableForLegalReasons", 451, "Unavailable For Legal Reasons", CategoryClientError, false},
	KindClientClosedRequest:              {"ClientClosedRequest", 499, "Client Closed Request", CategoryClientError, false},

	KindServerErrorOther:              {"ServerErrorOther", 0, "", CategoryServerError, false},
	KindInternalServerError:           {"InternalServerError", 500, "Internal Server Error", CategoryServerError, false},
	KindNotImplemented:                {"NotImplemented", 501, "Not Implemented", CategoryServerError, false},
	KindBadGateway:                    {"BadGateway", 502, "Bad Gateway", CategoryServerError, false},
	KindServiceUnavailable:            {"ServiceUnavailable", 503, "Service Unavailable", CategoryServerError, false},
	KindGatewayTimeout:                {"GatewayTimeout", 504, "Gateway Timeout", CategoryServerError, false},
	KindHTTPVersionNotSupported:       {"HTTPVersionNotSupported", 505, "HTTP Version Not Supported", CategoryServerError, false},
	KindVariantAlsoNegotiates:         {"VariantAlsoNegotiates", 506, "Variant Also Negotiates", CategoryServerError, false},
	KindInsufficientStorage:           {"InsufficientStorage", 507, "Insufficient Storage", CategoryServerError, false},
	KindLoopDetected:                  {"LoopDetected", 508, "Loop Detected", CategoryServerError, false},
	KindBandwidthLimitExceeded:        {"BandwidthLimitExceeded", 509, "Bandwidth Limit Exceeded", CategoryServerError, false},
	KindNotExtended:                   {"NotExtended", 510, "Not Extended", CategoryServerError, false},
	KindNetworkAuthenticationRequired: {"NetworkAuthenticationRequired", 511, "Network Authentication Required", CategoryServerError, false},
	KindNetworkReadTimeoutError:       {"NetworkReadTimeoutError", 598, "Network Read Timeout Error", CategoryServerError, false},
	KindNetworkConnectTimeoutError:    {"NetworkConnectTimeoutError", 599, "Network Connect Timeout Error", CategoryServerError, false},
}

// codeKinds maps 100-599 to named kinds, zero (KindOther) where none exists
var codeKinds = func() (m [600]Kind) {
	for k := Kind(0); k < kindCount; k++ {
		if code := kinds[k].code; code > 0 {
			m[code] = k
		}
	}
	return m
}()

var categoryOther = [...]Kind{
	CategoryOther:         KindOther,
	CategoryInformational: KindInformationalOther,
	CategorySuccess:       KindSuccessOther,
	CategoryRedirection:   KindRedirectionOther,
	CategoryClientError:   KindClientErrorOther,
	CategoryServerError:   KindServerErrorOther,
}

// Classify returns the named kind of code, or the Other kind of its
// category, or KindOther for codes outside 100-599
func Classify(code int) Kind {
	if code < 100 || code > 599 {
		return KindOther
	}
	if k := codeKinds[code]; k != KindOther {
		return k
	}
	return categoryOther[CategoryOf(code)]
}

// Kinds returns every kind
func Kinds() []Kind {
	all := make([]Kind, kindCount)
	for i := range all {
		all[i] = Kind(i)
	}
	return all
}

func (k Kind) valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.valid() {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kinds[k].name
}

// Code returns the status code of a named kind, 0 for Other kinds
func (k Kind) Code() int {
	if !k.valid() {
		return 0
	}
	return kinds[k].code
}

// Reason returns the reason phrase of a named kind
func (k Kind) Reason() string {
	if !k.valid() {
		return ""
	}
	return kinds[k].reason
}

// Category returns the category k belongs to
func (k Kind) Category() Category {
	if !k.valid() {
		return CategoryOther
	}
	return kinds[k].category
}

// CarriesPayload reports whether results of k hold a decoded body
func (k Kind) CarriesPayload() bool {
	return k.valid() && kinds[k].payload
}

// IsOther reports whether k is a fallback rather than a named status
func (k Kind) IsOther() bool {
	return k.valid() && kinds[k].code == 0
}
