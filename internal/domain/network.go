package domain

// Network identifies a blockchain (or the exchange account namespace) a
// wallet lives on. Token symbols are unique only within a network.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkBSC      Network = "bsc"
	NetworkPolygon  Network = "polygon"
	NetworkTron     Network = "tron"
	NetworkSolana   Network = "solana"
	NetworkBitcoin  Network = "bitcoin"
	NetworkXRP      Network = "xrp"
	NetworkTON      Network = "ton"
	NetworkExchange Network = "exchange"
)

// IsEVM returns true for networks speaking Ethereum JSON-RPC.
func (n Network) IsEVM() bool {
	return n == NetworkEthereum || n == NetworkBSC || n == NetworkPolygon
}

// NativeSymbol returns the base-currency symbol of the network, or "" for
// networks without a single native asset (the exchange namespace).
func NativeSymbol(n Network) string {
	switch n {
	case NetworkEthereum:
		return "ETH"
	case NetworkBSC:
		return "BNB"
	case NetworkPolygon:
		return "POL"
	case NetworkTron:
		return "TRX"
	case NetworkSolana:
		return "SOL"
	case NetworkBitcoin:
		return "BTC"
	case NetworkXRP:
		return "XRP"
	case NetworkTON:
		return "TON"
	default:
		return ""
	}
}

// DefaultTokenDecimals is assumed for contract-style tokens whose precision
// is not configured.
const DefaultTokenDecimals = 18

// NativeDecimals returns the decimal precision of a network's native asset.
func NativeDecimals(n Network) int32 {
	switch n {
	case NetworkTron, NetworkXRP:
		return 6
	case NetworkBitcoin:
		return 8
	case NetworkSolana, NetworkTON:
		return 9
	default:
		// EVM chains and anything unknown
		return 18
	}
}
