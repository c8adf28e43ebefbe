package overseer

import "moneymarket/crypto"

var (
	keyConfig       = []byte("overseer/config")
	keyEpochState   = []byte("overseer/epoch")
	keyWhitelistSeq = []byte("overseer/whitelist-seq")

	prefixWhitelist  = []byte("overseer/whitelist/")
	prefixCollateral = []byte("overseer/collateral/")
)

func whitelistKey(asset crypto.Address) []byte {
	return append(append([]byte(nil), prefixWhitelist...), asset.Bytes()...)
}

func collateralKey(borrower crypto.Address) []byte {
	return append(append([]byte(nil), prefixCollateral...), borrower.Bytes()...)
}
