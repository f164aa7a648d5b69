package contract

// Multi-owner wallet where transactions are submitted, confirmed by the
// required number of owners, then executed.
func init() {
	RegisterBuiltin("multisig", "Multisig Wallet", "Owner-confirmed transaction wallet (submit, confirm, execute).", multisigABI)
}

const multisigABI = `[
  {"type":"constructor","inputs":[{"name":"_owners","type":"address[]"},{"name":"_required","type":"uint256"}],"stateMutability":"nonpayable"},
  {"type":"receive","stateMutability":"payable"},
  {"type":"function","name":"owners","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  {"type":"function","name":"required","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"transactionCount","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"isConfirmed","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
  {"type":"function","name":"submitTransaction","inputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"transactionId","type":"uint256"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"confirmTransaction","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"revokeConfirmation","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"executeTransaction","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addOwner","inputs":[{"name":"owner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"removeOwner","inputs":[{"name":"owner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"changeRequirement","inputs":[{"name":"_required","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"event","name":"Submission","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
  {"type":"event","name":"Confirmation","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"transactionId","type":"uint256","indexed":true}]},
  {"type":"event","name":"Execution","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]}
]`
