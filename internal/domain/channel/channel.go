package channel

// ---------------------------------------------------------------------------
// Channel Codes and Groups
// ---------------------------------------------------------------------------

// Code identifies a sales channel (an external storefront the business sells
// through). Codes are assigned by the order-management platform.
type Code string

const (
	// CodeGmarket is the Gmarket marketplace
	CodeGmarket Code = "GMARKET"
	// CodeAuction is the Auction marketplace
	CodeAuction Code = "AUCTION"
	// CodeSmartStore is the Naver SmartStore storefront
	CodeSmartStore Code = "SMARTSTORE"
	// CodeCoupang is the Coupang marketplace
	CodeCoupang Code = "COUPANG"
	// CodeElevenSt is the 11st marketplace
	CodeElevenSt Code = "11ST"
)

// IsValid returns true if the channel code is a known channel
func (c Code) IsValid() bool {
	switch c {
	case CodeGmarket, CodeAuction, CodeSmartStore, CodeCoupang, CodeElevenSt:
		return true
	default:
		return false
	}
}

// String returns the string representation of the channel code
func (c Code) String() string {
	return string(c)
}

// Group identifies a set of channels that share a single product listing.
// Gmarket and Auction are registered through one ESM listing, so a product
// published there carries one product code for both channels; the remaining
// channels each require their own registration.
type Group string

const (
	// GroupESM covers Gmarket and Auction (shared listing)
	GroupESM Group = "ESM"
	// GroupSmartStore covers Naver SmartStore
	GroupSmartStore Group = "SMARTSTORE"
	// GroupCoupang covers Coupang
	GroupCoupang Group = "COUPANG"
	// GroupElevenSt covers 11st
	GroupElevenSt Group = "11ST"
)

// IsValid returns true if the group is a known channel group
func (g Group) IsValid() bool {
	switch g {
	case GroupESM, GroupSmartStore, GroupCoupang, GroupElevenSt:
		return true
	default:
		return false
	}
}

// String returns the string representation of the channel group
func (g Group) String() string {
	return string(g)
}

// AllGroups returns every known channel group
func AllGroups() []Group {
	return []Group{GroupESM, GroupSmartStore, GroupCoupang, GroupElevenSt}
}

// GroupForCode returns the channel group a channel code belongs to.
// The second return value is false for unknown codes.
func GroupForCode(c Code) (Group, bool) {
	switch c {
	case CodeGmarket, CodeAuction:
		return GroupESM, true
	case CodeSmartStore:
		return GroupSmartStore, true
	case CodeCoupang:
		return GroupCoupang, true
	case CodeElevenSt:
		return GroupElevenSt, true
	default:
		return "", false
	}
}
