package registry

// registryABI is the external surface of the deployed registry contract. Only
// these signatures are consumed; the contract's storage layout is its own.
const registryABI = `[
  {"type":"function","name":"mintMetadataNFT","stateMutability":"nonpayable","inputs":[
    {"name":"sourceUrl","type":"string"},
    {"name":"contentHash","type":"string"},
    {"name":"contentLink","type":"string"},
    {"name":"embedVectorId","type":"string"},
    {"name":"createdAt","type":"uint256"},
    {"name":"tags","type":"string[]"},
    {"name":"tokenUri","type":"string"}],
   "outputs":[{"name":"tokenId","type":"uint256"}]},
  {"type":"function","name":"getMetadata","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],
   "outputs":[
    {"name":"sourceUrl","type":"string"},
    {"name":"contentHash","type":"string"},
    {"name":"contentLink","type":"string"},
    {"name":"embedVectorId","type":"string"},
    {"name":"createdAt","type":"uint256"},
    {"name":"tags","type":"string[]"},
    {"name":"owner","type":"address"}]},
  {"type":"function","name":"getMetadataByCreator","stateMutability":"view","inputs":[
    {"name":"creator","type":"address"}],
   "outputs":[{"name":"tokenIds","type":"uint256[]"}]},
  {"type":"function","name":"donateToCreator","stateMutability":"payable","inputs":[
    {"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"owner","type":"address"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"uri","type":"string"}]},
  {"type":"function","name":"createBounty","stateMutability":"payable","inputs":[],
   "outputs":[{"name":"bountyId","type":"uint256"}]},
  {"type":"function","name":"addContributor","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"uint256"},
    {"name":"contributor","type":"address"}],"outputs":[]},
  {"type":"function","name":"distributeBounty","stateMutability":"nonpayable","inputs":[
    {"name":"bountyId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getBounty","stateMutability":"view","inputs":[
    {"name":"bountyId","type":"uint256"}],
   "outputs":[
    {"name":"amount","type":"uint256"},
    {"name":"creator","type":"address"},
    {"name":"contributors","type":"address[]"},
    {"name":"distributed","type":"bool"}]},
  {"type":"function","name":"nextBountyId","stateMutability":"view","inputs":[],
   "outputs":[{"name":"next","type":"uint256"}]},
  {"type":"event","name":"MetadataMinted","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"contentHash","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"DonationReceived","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"donor","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"BountyCreated","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"creator","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"ContributorAdded","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"contributor","type":"address","indexed":true}],"anonymous":false},
  {"type":"event","name":"BountyDistributed","inputs":[
    {"name":"bountyId","type":"uint256","indexed":true},
    {"name":"rewardPerContributor","type":"uint256","indexed":false}],"anonymous":false}
]`
