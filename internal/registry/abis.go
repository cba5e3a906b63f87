package registry

// ABI fragments used by the EVM chain service.
const (
	ERC20ABI = `[
		{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`

	// Sei staking precompile. delegate takes the amount as msg.value in wei,
	// undelegate takes it in usei.
	SeiStakingABI = `[
		{"name":"delegate","type":"function","stateMutability":"payable","inputs":[{"name":"valAddress","type":"string"}],"outputs":[{"name":"success","type":"bool"}]},
		{"name":"undelegate","type":"function","stateMutability":"nonpayable","inputs":[{"name":"valAddress","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
		{"name":"redelegate","type":"function","stateMutability":"nonpayable","inputs":[{"name":"srcAddress","type":"string"},{"name":"dstAddress","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]}
	]`

	SeiDistributionABI = `[
		{"name":"withdrawDelegationRewards","type":"function","stateMutability":"nonpayable","inputs":[{"name":"validator","type":"string"}],"outputs":[{"name":"success","type":"bool"}]},
		{"name":"withdrawMultipleDelegationRewards","type":"function","stateMutability":"nonpayable","inputs":[{"name":"validators","type":"string[]"}],"outputs":[{"name":"success","type":"bool"}]}
	]`
)
