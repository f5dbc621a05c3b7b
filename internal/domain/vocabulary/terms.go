package vocabulary

// Term is one controlled-vocabulary value with the definition shown to the
// classifier and used to expand embedding input.
type Term struct {
	Value       string
	Group       string
	Description string
}

var standards = []Term{
	{"erc-20", "Token Standards", "The standard for fungible tokens, representing interchangeable assets. Requires functions like `transfer`, `approve`, and `balanceOf`."},
	{"erc-721", "Token Standards", "The standard for non-fungible tokens (NFTs), representing unique assets. Requires functions like `ownerOf` and `safeTransferFrom`."},
	{"erc-721a", "Token Standards", "An optimized version of ERC-721 for significantly cheaper gas costs when minting multiple NFTs in a single transaction."},
	{"erc-1155", "Token Standards", "A multi-token standard that can manage fungible, non-fungible, and semi-fungible tokens in a single contract."},
	{"erc-4626", "Token Standards", "The \"Tokenized Vault\" standard. Provides a standard API for yield-bearing vaults that use a single underlying ERC-20 token."},
	{"erc-2981", "NFT-Related Standards", "The \"NFT Royalty Standard.\" Provides a universal way to retrieve royalty payment information for an NFT."},
	{"erc-6551", "NFT-Related Standards", "The \"Token Bound Accounts\" standard. Allows every NFT to own its own smart contract wallet, enabling it to hold assets and interact with dApps."},
	{"eip-712", "Utility & Architecture Standards", "The standard for hashing and signing typed structured data, allowing for human-readable messages in wallets."},
	{"erc-165", "Utility & Architecture Standards", "The \"Standard Interface Detection.\" Allows contracts to publish the interfaces they support (e.g., `supportsInterface(0x80ac58cd)` for ERC-721)."},
	{"eip-1967", "Utility & Architecture Standards", "The \"Standard Proxy Storage Slots.\" Defines specific storage slots to store the logic address and admin address for transparent and UUPS proxies."},
	{"eip-1822", "Utility & Architecture Standards", "The \"Universal Upgradeable Proxy Standard (UUPS).\" The standard that defines the UUPS upgradeable proxy pattern."},
	{"eip-2535", "Utility & Architecture Standards", "The \"Diamond Standard.\" A modular smart contract system where a proxy delegates calls to multiple implementation contracts (\"facets\")."},
	{"eip-2771", "Utility & Architecture Standards", "The \"Secure Gasless Transactions\" standard. A system for accepting transactions where a third-party forwarder pays for gas on behalf of the user."},
	{"erc-4337", "Utility & Architecture Standards", "The \"Account Abstraction\" standard. Allows for smart contract wallets with advanced features, executed via a decentralized mempool of `UserOperations`."},
}

var patterns = []Term{
	{"proxy_transparent", "Upgradability Patterns", "An upgradeable proxy pattern where logic for admins and users is separated into the proxy contract to avoid function selector clashes."},
	{"proxy_uups", "Upgradability Patterns", "An upgradeable proxy pattern (EIP-1822) where the upgrade logic resides in the implementation contract itself, saving deployment gas."},
	{"diamond", "Upgradability Patterns", "A modular contract composed of a proxy delegating calls to multiple \"facet\" implementation contracts, allowing for granular upgrades."},
	{"factory", "Creational Patterns", "A contract whose primary purpose is to deploy other \"clone\" contracts, often using `create` or `create2`."},
	{"singleton", "Creational Patterns", "A single, unique instance of a contract that serves as a shared resource or registry for an entire protocol (e.g., the ERC-4337 EntryPoint)."},
	{"access_control_ownable", "Security & Control Patterns", "A simple permission model where a single \"owner\" address has special privileges, typically via `onlyOwner` modifiers."},
	{"access_control_role_based", "Security & Control Patterns", "A complex permission model where different addresses are assigned specific roles (e.g., `MINTER_ROLE`, `PAUSER_ROLE`) with different rights."},
	{"reentrancy_guard", "Security & Control Patterns", "A mechanism, typically a modifier (`nonReentrant`), to prevent a contract from being called again before its initial function call is complete."},
	{"checks_effects_interactions", "Security & Control Patterns", "A code-structuring pattern where state variable checks are performed first, followed by updates to state (effects), and finally calls to external contracts (interactions)."},
	{"pull_over_push_withdrawal", "Security & Control Patterns", "A pattern for handling withdrawals where users must call a `withdraw` function to pull funds, rather than the contract pushing funds to them, to mitigate certain security risks."},
	{"timelock", "Security & Control Patterns", "A mechanism that enforces a mandatory delay between when an action is proposed and when it can be executed."},
	{"library", "State & Data Patterns", "A stateless contract containing reusable code that is called via `DELEGATECALL` by other contracts to save gas and avoid code duplication."},
	{"commit_reveal", "State & Data Patterns", "A two-step process to prevent front-running where a user first submits a hash of their action (commit) and later submits the action itself (reveal)."},
}

var functionalities = []Term{
	{"token_transfer", "Token Actions", "Performs core token actions like managing balances and handling transfers."},
	{"token_minting", "Token Actions", "Contains logic for creating new tokens."},
	{"token_burning", "Token Actions", "Contains logic for destroying existing tokens."},
	{"pausable", "Security & Control", "Contains logic to pause and unpause contract functions, halting activity."},
	{"upgradable", "Security & Control", "Contains logic to change the contract's implementation code, typically via a proxy."},
	{"signature_verification", "Security & Control", "Verifies user signatures to authorize actions, often for gasless transactions (e.g., `permit`)."},
	{"staking", "Financial Mechanisms", "Allows users to lock up assets to earn rewards."},
	{"vesting", "Financial Mechanisms", "Locks assets for a period and releases them incrementally over time."},
	{"escrow", "Financial Mechanisms", "Holds and locks assets, releasing them only when specific, predefined conditions are met."},
	{"payment_splitter", "Financial Mechanisms", "Distributes incoming funds among a predefined set of payees according to specific shares."},
	{"financial_calculations_amm", "Financial Mechanisms", "Performs calculations for an Automated Market Maker (e.g., swap prices)."},
	{"financial_calculations_interest_rate", "Financial Mechanisms", "Contains logic for calculating interest rates for lending/borrowing."},
	{"onchain_voting", "Governance & Data", "Contains logic for proposal submission, vote counting, and determining quorum."},
	{"data_registry", "Governance & Data", "Functions as an on-chain key-value store or directory."},
	{"offchain_data_bridge", "Governance & Data", "Interacts with an oracle or cross-chain bridge to use external data."},
	{"randomness", "Governance & Data", "Consumes a source of on-chain or off-chain randomness (e.g., Chainlink VRF)."},
}

var domains = []Term{
	{"defi_lending", "", "Protocols for lending and borrowing crypto assets (e.g., Aave, Compound)."},
	{"defi_dex", "", "Protocols for peer-to-peer asset trading, typically using an AMM (e.g., Uniswap, Curve)."},
	{"defi_stablecoin", "", "Contracts that issue and manage a token pegged to a stable value (e.g., MakerDAO, Frax)."},
	{"defi_derivatives", "", "Protocols for creating and trading synthetic assets, options, or futures."},
	{"defi_yield_aggregator", "", "Protocols that automatically move user funds to maximize yield (e.g., Yearn Finance)."},
	{"defi_liquid_staking", "", "Protocols that issue a liquid staking token (LST) for staked assets (e.g., Lido)."},
	{"nft_collection", "", "The core contract for an NFT project, managing minting, ownership, and metadata."},
	{"nft_marketplace", "", "A platform for listing, bidding on, and trading various NFTs (e.g., OpenSea Seaport)."},
	{"nft_infrastructure", "", "A protocol or tool that provides services for the NFT ecosystem."},
	{"governance_dao", "", "The core logic for a Decentralized Autonomous Organization, handling proposals and voting."},
	{"governance_treasury", "", "A contract for managing a community's funds, often a multi-sig wallet (e.g., Gnosis Safe)."},
	{"gaming_metaverse_game_logic", "", "Contains the core rules, state, and interactions for an on-chain game."},
	{"gaming_metaverse_virtual_assets", "", "Manages in-game items, currency, or virtual land."},
	{"identity_social_decentralized_id", "", "Manages decentralized identifiers (DIDs) and credentials."},
	{"identity_social_social_graph", "", "Creates a decentralized graph of user profiles and connections (e.g., Lens Protocol)."},
	{"infrastructure_oracle", "", "Provides external, real-world data (like asset prices) to the blockchain."},
	{"infrastructure_bridge", "", "Facilitates the transfer of assets or data between different blockchain networks."},
	{"infrastructure_naming_service", "", "Maps human-readable names to Ethereum addresses (e.g., ENS)."},
	{"infrastructure_storage", "", "Interacts with decentralized storage networks (e.g., Arweave, Filecoin)."},
	{"depin", "", "A protocol for Decentralized Physical Infrastructure Networks, which use token incentives to coordinate real-world services (e.g., Helium, Hivemapper)."},
	{"rwa_asset_tokenization", "", "Contracts that represent ownership of real-world assets on the blockchain."},
	{"utility_general_purpose", "", "A generic building block or tool whose application is not specific to any single domain."},
}
