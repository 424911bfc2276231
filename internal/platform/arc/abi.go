package arc

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// vaultABIJSON covers the slice of the vault contract the agent talks to:
// the PositionOpened event it watches and the settlePosition entry point it
// calls on liquidation.
const vaultABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true,  "name": "positionId", "type": "uint256"},
      {"indexed": false, "name": "marketId",   "type": "string"},
      {"indexed": false, "name": "isLongYes",  "type": "bool"},
      {"indexed": false, "name": "entryPrice", "type": "uint256"},
      {"indexed": false, "name": "collateral", "type": "uint256"},
      {"indexed": false, "name": "leverage",   "type": "uint256"},
      {"indexed": true,  "name": "trader",     "type": "address"}
    ],
    "name": "PositionOpened",
    "type": "event"
  },
  {
    "inputs": [{"name": "positionId", "type": "uint256"}],
    "name": "settlePosition",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

// messengerABIJSON is the depositForBurn entry point of the Circle CCTP
// TokenMessenger contract.
const messengerABIJSON = `[
  {
    "inputs": [
      {"name": "amount",            "type": "uint256"},
      {"name": "destinationDomain", "type": "uint32"},
      {"name": "mintRecipient",     "type": "bytes32"},
      {"name": "burnToken",         "type": "address"}
    ],
    "name": "depositForBurn",
    "outputs": [{"name": "nonce", "type": "uint64"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	vaultABI     abi.ABI
	messengerABI abi.ABI
)

func init() {
	var err error
	vaultABI, err = abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic("arc: parse vault ABI: " + err.Error())
	}
	messengerABI, err = abi.JSON(strings.NewReader(messengerABIJSON))
	if err != nil {
		panic("arc: parse messenger ABI: " + err.Error())
	}
}

// VaultABI returns the parsed vault contract ABI.
func VaultABI() abi.ABI {
	return vaultABI
}

// MessengerABI returns the parsed CCTP TokenMessenger ABI.
func MessengerABI() abi.ABI {
	return messengerABI
}
